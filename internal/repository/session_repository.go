package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// SessionFilter narrows session listings.
type SessionFilter struct {
	CustomerID  *string
	Statuses    []domain.SessionStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketFactory builds the ticket for an escalating session. It is invoked
// once per insert attempt so that every attempt carries a fresh reference.
type TicketFactory func(session *domain.Session) (*domain.Ticket, error)

// SessionRepository persists sessions and their messages.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error)
	// AppendMessage stores msg and applies patch, but only while the session
	// is active. It returns the updated session.
	AppendMessage(ctx context.Context, msg *domain.SessionMessage, patch domain.SessionPatch) (*domain.Session, error)
	ListMessages(ctx context.Context, sessionID string) ([]domain.SessionMessage, error)
	// Resolve moves an active session to resolved. It reports false with no
	// error when the session was not active.
	Resolve(ctx context.Context, id string, at time.Time) (bool, error)
	SetSummary(ctx context.Context, id, summary string) error
	// Escalate marks the session escalated and inserts exactly one linked
	// ticket in one transaction. When a ticket already exists for the
	// session it is returned with created=false.
	Escalate(ctx context.Context, id string, build TicketFactory) (ticket *domain.Ticket, created bool, err error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, customer_id, category, sub_category, query_text, resolution, status, language,
               summary, created_at, resolved_at, latitude, longitude`

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (id, customer_id, category, sub_category, query_text, resolution, status, language,
            summary, created_at, latitude, longitude)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.CustomerID,
		session.Category,
		session.SubCategory,
		session.QueryText,
		session.Resolution,
		session.Status,
		session.Language,
		session.Summary,
		session.CreatedAt,
		session.Latitude,
		session.Longitude,
	)
	return translate(err)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return fetchSession(ctx, r.pool, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
}

func fetchSession(ctx context.Context, db querier, query string, arg any) (*domain.Session, error) {
	session, err := scanSession(db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return session, nil
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]domain.Session, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY created_at DESC%s`,
		sessionColumns, strings.Join(clauses, " AND "), pageClause(filter.Limit, filter.Offset, 50))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *session)
	}
	return result, rows.Err()
}

func (r *sessionRepository) AppendMessage(ctx context.Context, msg *domain.SessionMessage, patch domain.SessionPatch) (*domain.Session, error) {
	var updated *domain.Session
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		session, err := fetchSession(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1 FOR UPDATE`, msg.SessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionStatusActive {
			return ErrStateConflict
		}

		const insert = `
            INSERT INTO session_messages (id, session_id, sender, content, created_at)
            VALUES ($1,$2,$3,$4,$5)`
		if _, err := tx.Exec(ctx, insert, msg.ID, msg.SessionID, msg.Sender, msg.Content, msg.CreatedAt); err != nil {
			return translate(err)
		}

		patch.Apply(session)
		const update = `
            UPDATE sessions SET category=$1, sub_category=$2, query_text=$3, resolution=$4, language=$5
            WHERE id=$6`
		if _, err := tx.Exec(ctx, update,
			session.Category,
			session.SubCategory,
			session.QueryText,
			session.Resolution,
			session.Language,
			session.ID,
		); err != nil {
			return translate(err)
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *sessionRepository) ListMessages(ctx context.Context, sessionID string) ([]domain.SessionMessage, error) {
	const query = `
        SELECT id, session_id, sender, content, created_at
        FROM session_messages WHERE session_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.SessionMessage
	for rows.Next() {
		var msg domain.SessionMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *sessionRepository) Resolve(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE sessions SET status='resolved', resolved_at=$2 WHERE id=$1 AND status='active'`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, translate(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *sessionRepository) SetSummary(ctx context.Context, id, summary string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE sessions SET summary=$2 WHERE id=$1`, id, summary)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepository) Escalate(ctx context.Context, id string, build TicketFactory) (*domain.Ticket, bool, error) {
	var (
		ticket  *domain.Ticket
		created bool
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		session, err := fetchSession(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		existing, err := fetchTicket(ctx, tx, `SELECT `+ticketColumns+` FROM tickets WHERE session_id=$1`, id)
		switch {
		case err == nil:
			ticket = existing
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if session.Status == domain.SessionStatusResolved {
			return ErrStateConflict
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET status='escalated' WHERE id=$1`, id); err != nil {
			return translate(err)
		}
		session.Status = domain.SessionStatusEscalated

		for attempt := 1; ; attempt++ {
			candidate, err := build(session)
			if err != nil {
				return err
			}
			err = insertTicketSavepoint(ctx, tx, candidate)
			if err == nil {
				candidate.Version = 1
				ticket = candidate
				created = true
				return nil
			}
			if !errors.Is(err, ErrDuplicate) || attempt == MaxInsertAttempts {
				return err
			}
		}
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, created, nil
}

// insertTicketSavepoint isolates the insert so that a unique violation does
// not abort the surrounding transaction.
func insertTicketSavepoint(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return translate(err)
	}
	if err := execTicketInsert(ctx, sp, ticket); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return translate(sp.Commit(ctx))
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.CustomerID,
		&session.Category,
		&session.SubCategory,
		&session.QueryText,
		&session.Resolution,
		&session.Status,
		&session.Language,
		&session.Summary,
		&session.CreatedAt,
		&session.ResolvedAt,
		&session.Latitude,
		&session.Longitude,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
