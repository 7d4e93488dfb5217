package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// TicketHistoryRepository stores the append-only audit trail of tickets.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	// ListByTicket returns entries oldest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

const historyColumns = `id, ticket_id, changed_by_id, change_type, old_value, new_value, created_at`

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	return insertHistory(ctx, r.pool, history)
}

func insertHistory(ctx context.Context, db querier, h *domain.TicketHistory) error {
	_, err := db.Exec(ctx,
		`INSERT INTO ticket_history (`+historyColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.TicketID, h.ChangedByID, h.ChangeType, h.OldValue, h.NewValue, h.CreatedAt,
	)
	return translate(err)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`,
		ticketID,
	)
	if err != nil {
		return nil, translate(err)
	}
	entries, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

func scanHistory(row pgx.CollectableRow) (domain.TicketHistory, error) {
	var h domain.TicketHistory
	err := row.Scan(&h.ID, &h.TicketID, &h.ChangedByID, &h.ChangeType, &h.OldValue, &h.NewValue, &h.CreatedAt)
	return h, err
}
