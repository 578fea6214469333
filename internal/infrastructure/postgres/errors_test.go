package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/phq9-intake/internal/domain/repository"
)

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if err := mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("no rows: %v", err)
	}

	dup := mapError(&pgconn.PgError{Code: "23505", ConstraintName: constraintEmail})
	var ce *repository.ConstraintError
	if !errors.As(dup, &ce) || !errors.Is(dup, repository.ErrDuplicate) || ce.Constraint != constraintEmail {
		t.Fatalf("unique violation: %v", dup)
	}

	fk := mapError(&pgconn.PgError{Code: "23503", ConstraintName: "phq9_assessment_user_id_fkey"})
	if !errors.Is(fk, repository.ErrForeignKey) {
		t.Fatalf("fk violation: %v", fk)
	}

	other := errors.New("connection reset")
	if mapError(other) != other {
		t.Fatalf("unrelated errors must pass through")
	}
}
