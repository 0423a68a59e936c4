package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

// cancelledAt reports whether a transaction was cancelled because the condition on item
// index failed.
func cancelledAt(err error, index int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || index >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[index].Code) == "ConditionalCheckFailed"
}

// conflicted reports whether a transaction lost a race with another in-flight transaction
// rather than failing one of its own conditions.
func conflicted(err error) bool {
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return true
	}
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, r := range tce.CancellationReasons {
		if aws.ToString(r.Code) == "TransactionConflict" {
			return true
		}
	}
	return false
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
		conflict   *types.TransactionConflictException
		cancelled  *types.TransactionCanceledException
	)
	switch {
	case errors.As(err, &throughput), errors.As(err, &limit), errors.As(err, &internal):
		return domain.NewUnavailableError(op+": dynamodb unavailable", err)
	case errors.As(err, &conflict), errors.As(err, &cancelled):
		return domain.NewConflictError(op + ": concurrent transaction, retry")
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewUnavailableError(op+": dynamodb timeout", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
