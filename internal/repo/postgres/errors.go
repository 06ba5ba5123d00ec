package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trailborn/tours-api/internal/domain"
)

const uniqueViolation = "23505"

// translateErr converts driver-level errors into domain errors where the
// caller cares about the distinction.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicate
	}
	return err
}
