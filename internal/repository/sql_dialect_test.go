package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestLockTimeoutStatementByDialect(t *testing.T) {
	if got := LockTimeoutStatement("sqlite", 3000); got != "" {
		t.Fatalf("sqlite should not set lock timeout, got %s", got)
	}
	if got := LockTimeoutStatement("postgres", 0); got != "" {
		t.Fatalf("zero timeout should be skipped, got %s", got)
	}
	want := "SET LOCAL lock_timeout = '1500ms'"
	if got := LockTimeoutStatement("postgres", 1500); got != want {
		t.Fatalf("postgres lock timeout mismatch, want %s got %s", want, got)
	}
}

func TestIsTransientDBError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"lock_not_available", &pgconn.PgError{Code: "55P03"}, true},
		{"serialization", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40001"}), true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"sqlite_busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"unique", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("record not found"), false},
	}
	for _, tc := range cases {
		if got := IsTransientDBError(tc.err); got != tc.want {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("pg 23505 should be unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: codes.code")) {
		t.Fatalf("sqlite unique message should be detected")
	}
	if IsUniqueViolation(errors.New("timeout")) {
		t.Fatalf("timeout should not be unique violation")
	}
}

func TestLikeOperatorByDialect(t *testing.T) {
	if likeOperatorByDialect("postgres") != "ILIKE" {
		t.Fatalf("postgres should use ILIKE")
	}
	if likeOperatorByDialect("sqlite") != "LIKE" {
		t.Fatalf("sqlite should use LIKE")
	}
}
