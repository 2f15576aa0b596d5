package utils

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"
)

// WaitFor retries check with exponential backoff until it succeeds, ctx ends or
// attempts run out. Used at startup while sidecar-style dependencies come up.
func WaitFor(ctx context.Context, logger *zap.Logger, name string, attempts int, check func(ctx context.Context) error) error {
	policy := retrypolicy.NewBuilder[any]().
		WithBackoff(200*time.Millisecond, 5*time.Second).
		WithMaxRetries(attempts).
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.Warn(
				"dependency not ready, retrying",
				zap.String("dependency", name),
				zap.Int("attempt", e.Attempts()),
				zap.Error(e.LastError()),
			)
		}).
		Build()

	return failsafe.With[any](policy).
		WithContext(ctx).
		Run(func() error {
			return check(ctx)
		})
}
