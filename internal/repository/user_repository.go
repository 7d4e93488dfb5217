package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/refgen"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// CreateStaff allocates the next employee ID for prefix and inserts the
	// user. Allocation is serialized per prefix.
	CreateStaff(ctx context.Context, user *domain.User, prefix string) error
	SetOnline(ctx context.Context, id string, online bool) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, roles ...domain.Role) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, phone_number, password_hash, role, employee_id, is_online, created_at`

const insertUser = `
        INSERT INTO users (id, name, email, phone_number, password_hash, role, employee_id, is_online, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUserRow(ctx, r.pool, user)
}

func insertUserRow(ctx context.Context, db querier, user *domain.User) error {
	_, err := db.Exec(ctx, insertUser,
		user.ID,
		user.Name,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.Role,
		user.EmployeeID,
		user.IsOnline,
		user.CreatedAt,
	)
	return translate(err)
}

func (r *userRepository) CreateStaff(ctx context.Context, user *domain.User, prefix string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "employee_id:"+prefix); err != nil {
			return translate(err)
		}

		const highestQuery = `
            SELECT employee_id FROM users
            WHERE employee_id LIKE $1 || '%' AND substring(employee_id from length($1)+1) ~ '^[0-9]+$'
            ORDER BY length(employee_id) DESC, employee_id DESC LIMIT 1`
		var highest string
		err := tx.QueryRow(ctx, highestQuery, prefix).Scan(&highest)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return translate(err)
		}

		id := refgen.NextEmployeeID(prefix, highest)
		user.EmployeeID = &id
		return insertUserRow(ctx, tx, user)
	})
}

func (r *userRepository) SetOnline(ctx context.Context, id string, online bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET is_online=$2 WHERE id=$1`, id, online)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetch(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetch(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) fetch(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, roles ...domain.Role) ([]domain.User, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ANY($1) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PhoneNumber,
		&user.PasswordHash,
		&user.Role,
		&user.EmployeeID,
		&user.IsOnline,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
