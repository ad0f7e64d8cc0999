package desk

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sourcegraph/conc/iter"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/poller"
	"github.com/coachpo/traderdesk/internal/observability"
)

const (
	bootstrapInitialInterval = 200 * time.Millisecond
	bootstrapMaxInterval     = 5 * time.Second
)

// Bootstrap fetches every collection once, retrying the ones that fail with
// exponential backoff until all succeed or the bootstrap timeout passes.
func (d *Desk) Bootstrap(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.bootstrapTimeout)
	defer cancel()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = bootstrapInitialInterval
	backoffCfg.MaxInterval = bootstrapMaxInterval

	pending := []poller.Fetcher{d.orders, d.executions, d.instruments, d.marketData}
	for attempt := 1; ; attempt++ {
		results := iter.Map(pending, func(f *poller.Fetcher) error {
			return (*f).Fetch(ctx)
		})
		failed := make([]poller.Fetcher, 0, len(pending))
		var failures []error
		for i, err := range results {
			if err != nil {
				failed = append(failed, pending[i])
				failures = append(failures, err)
			}
		}
		if len(failed) == 0 {
			d.logger.Info("collections seeded", observability.F("attempts", attempt))
			return nil
		}
		pending = failed

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = bootstrapMaxInterval
		}
		d.logger.Warn("bootstrap fetch failed, retrying",
			observability.F("attempt", attempt),
			observability.F("pending", len(pending)),
			observability.F("retry_in", sleep.String()),
			observability.Err(errors.Join(failures...)))

		select {
		case <-ctx.Done():
			return errs.New(resource, errs.CodeNetworkUnavailable,
				errs.WithMessage("gateway did not answer before the bootstrap timeout"),
				errs.WithCause(errors.Join(failures...)))
		case <-time.After(sleep):
		}
	}
}
