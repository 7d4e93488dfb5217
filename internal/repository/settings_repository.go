package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository stores named key/value system settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, updatedBy string) error
	ListByPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := r.pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key=$1`, key).Scan(&value); err != nil {
		return "", translate(err)
	}
	return value, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value, updatedBy string) error {
	const query = `
        INSERT INTO system_settings (key, value, updated_by, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_by=EXCLUDED.updated_by, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, key, value, updatedBy)
	return translate(err)
}

func (r *settingsRepository) ListByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM system_settings WHERE starts_with(key, $1)`, prefix)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}
