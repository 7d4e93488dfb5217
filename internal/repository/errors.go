package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict is returned when an optimistic update lost a race.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrDuplicate is returned when a unique constraint rejected a write.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrStateConflict is returned when a conditional transition found the
	// entity in a state that does not allow it.
	ErrStateConflict = errors.New("repository: state conflict")
)

// NoLimit disables pagination on list filters.
const NoLimit = -1

const uniqueViolation = "23505"

// translate maps pgx errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func pageClause(limit, offset, fallback int) string {
	if limit == NoLimit {
		return ""
	}
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
