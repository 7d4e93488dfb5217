package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// FeedbackFilter narrows feedback listings.
type FeedbackFilter struct {
	UserID      *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// FeedbackRepository stores append-only ratings.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	List(ctx context.Context, filter FeedbackFilter) ([]domain.Feedback, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository returns a Postgres-backed implementation.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO feedback (id, user_id, session_id, rating, comment, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		feedback.ID,
		feedback.UserID,
		feedback.SessionID,
		feedback.Rating,
		feedback.Comment,
		feedback.CreatedAt,
	)
	return translate(err)
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]domain.Feedback, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT id, user_id, session_id, rating, comment, created_at
        FROM feedback WHERE %s ORDER BY created_at DESC%s`,
		strings.Join(clauses, " AND "), pageClause(filter.Limit, filter.Offset, 50))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.SessionID, &fb.Rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}
