package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	CustomerID  *string
	AssigneeID  *string
	Category    *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
//
// Update is an optimistic compare-and-swap on Version and never writes the
// alert flags or sla_breached. ClaimAlert is the only writer of those
// columns.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	// ClaimAlert atomically sets the flag for level on a still-open ticket
	// whose flag is unset. It reports whether this caller won the claim.
	ClaimAlert(ctx context.Context, id string, level domain.AlertLevel, at time.Time) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference_number, session_id, customer_id, category, sub_category, description,
               status, priority, assignee_id, resolution_notes, created_at, updated_at, resolved_at,
               sla_hours, sla_deadline, sla_breached, alert_625_sent, alert_750_sent, alert_875_sent,
               breach_alert_sent, version`

const insertTicket = `
        INSERT INTO tickets (id, reference_number, session_id, customer_id, category, sub_category, description,
            status, priority, assignee_id, resolution_notes, created_at, updated_at, sla_hours, sla_deadline, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1)`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := execTicketInsert(ctx, r.pool, ticket); err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

func execTicketInsert(ctx context.Context, db querier, ticket *domain.Ticket) error {
	_, err := db.Exec(ctx, insertTicket,
		ticket.ID,
		ticket.ReferenceNumber,
		ticket.SessionID,
		ticket.CustomerID,
		ticket.Category,
		ticket.SubCategory,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ResolutionNotes,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.SLAHours,
		ticket.SLADeadline,
	)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assignee_id=$3, resolution_notes=$4, resolved_at=$5,
            sla_hours=$6, sla_deadline=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ResolutionNotes,
		ticket.ResolvedAt,
		ticket.SLAHours,
		ticket.SLADeadline,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return translate(err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return fetchTicket(ctx, r.pool, query, id)
}

func (r *ticketRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE session_id=$1`
	return fetchTicket(ctx, r.pool, query, sessionID)
}

func fetchTicket(ctx context.Context, db querier, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := ticketWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC%s`,
		ticketColumns, where, pageClause(filter.Limit, filter.Offset, 20))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ticketWhere renders the filter as a WHERE body with positional args.
func ticketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(reference_number) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE status IN ('pending','in_progress') ORDER BY sla_deadline ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

var alertColumns = map[domain.AlertLevel]string{
	domain.Alert625:    "alert_625_sent",
	domain.Alert750:    "alert_750_sent",
	domain.Alert875:    "alert_875_sent",
	domain.AlertBreach: "breach_alert_sent",
}

func (r *ticketRepository) ClaimAlert(ctx context.Context, id string, level domain.AlertLevel, at time.Time) (bool, error) {
	column, ok := alertColumns[level]
	if !ok {
		return false, fmt.Errorf("unknown alert level %q", level)
	}
	set := column + "=TRUE"
	if level == domain.AlertBreach {
		set += ", sla_breached=TRUE"
	}
	query := fmt.Sprintf(`
        UPDATE tickets SET %s, updated_at=$2
        WHERE id=$1 AND %s=FALSE AND status IN ('pending','in_progress')`, set, column)
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, translate(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ReferenceNumber,
		&ticket.SessionID,
		&ticket.CustomerID,
		&ticket.Category,
		&ticket.SubCategory,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssigneeID,
		&ticket.ResolutionNotes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.SLAHours,
		&ticket.SLADeadline,
		&ticket.SLABreached,
		&ticket.Alert625Sent,
		&ticket.Alert750Sent,
		&ticket.Alert875Sent,
		&ticket.BreachAlertSent,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
