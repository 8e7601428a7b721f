package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err was caused by a unique constraint.
// Dialects that translate errors return gorm.ErrDuplicatedKey; raw pgx
// errors are matched on their SQLSTATE.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// notFound maps gorm.ErrRecordNotFound to the given domain error, which
// also matches shared.ErrNotFound
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", domainErr, shared.ErrNotFound)
	}
	return err
}

