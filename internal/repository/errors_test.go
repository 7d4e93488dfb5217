package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslate(t *testing.T) {
	if err := translate(nil); err != nil {
		t.Fatalf("translate(nil) = %v", err)
	}
	if err := translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_reference_number_key"}
	err := translate(dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.ConstraintName != dup.ConstraintName {
		t.Fatal("original pg error should stay reachable")
	}
	other := &pgconn.PgError{Code: "23503"}
	if err := translate(other); errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign key violation must pass through untouched, got %v", err)
	}
}

func TestPageClause(t *testing.T) {
	cases := []struct {
		limit, offset int
		want          string
	}{
		{0, 0, " LIMIT 20 OFFSET 0"},
		{5, 10, " LIMIT 5 OFFSET 10"},
		{5, -3, " LIMIT 5 OFFSET 0"},
		{NoLimit, 7, ""},
	}
	for _, tc := range cases {
		if got := pageClause(tc.limit, tc.offset, 20); got != tc.want {
			t.Fatalf("pageClause(%d,%d) = %q, want %q", tc.limit, tc.offset, got, tc.want)
		}
	}
}
