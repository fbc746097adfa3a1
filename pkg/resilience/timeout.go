package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
)

// WithTimeout bounds op to d. An overrun returns an error wrapping both
// apperrors.ErrTimeout and context.DeadlineExceeded, so HTTPStatusCode maps
// it to 503. Cancellation of ctx itself is returned as-is. fn is left
// running until it observes its context.
func WithTimeout(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(bounded) }()

	select {
	case err := <-result:
		return err
	case <-bounded.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s exceeded %v: %w: %w", op, d, apperrors.ErrTimeout, context.DeadlineExceeded)
}
