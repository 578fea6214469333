package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/phq9-intake/internal/domain/repository"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &repository.ConstraintError{Kind: repository.ErrDuplicate, Constraint: pgErr.ConstraintName}
		case codeForeignKeyViolation:
			return &repository.ConstraintError{Kind: repository.ErrForeignKey, Constraint: pgErr.ConstraintName}
		}
	}
	return err
}
