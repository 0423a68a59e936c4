package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

// classify turns driver errors the caller can act on into domain errors. Everything else is
// wrapped with op and returned as is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return domain.NewConflictError(fmt.Sprintf("%s: duplicate %s", op, pgErr.ConstraintName))
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return domain.NewUnavailableError(op+": transaction aborted, retry", err)
		case strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P"):
			return domain.NewUnavailableError(op+": database unavailable", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return domain.NewUnavailableError(op+": database timeout", err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.NewUnavailableError(op+": database unavailable", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
