// Package poller keeps collections fresh with fixed-interval full-replace fetches.
package poller

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/traderdesk/internal/infra/telemetry"
	"github.com/coachpo/traderdesk/internal/observability"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = time.Second

// Fetcher is a collection refreshed on every tick.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) error
}

// Options configures a Synchronizer.
type Options struct {
	Interval time.Duration
	Logger   observability.Logger
}

// Synchronizer issues one fetch per registered collection on every tick.
// Ticks never wait for one another and failures are not retried before the
// next tick.
type Synchronizer struct {
	interval time.Duration
	logger   observability.Logger

	mu      sync.RWMutex
	targets []Fetcher

	ticks    atomic.Uint64
	inflight conc.WaitGroup

	tickCounter    metric.Int64Counter
	failureCounter metric.Int64Counter
	tickDuration   metric.Float64Histogram
}

// New constructs a synchronizer over the given collections.
func New(opts Options, targets ...Fetcher) *Synchronizer {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Synchronizer{
		interval: interval,
		logger:   observability.OrDefault(opts.Logger),
	}
	for _, t := range targets {
		s.Register(t)
	}

	meter := otel.Meter("poller")
	s.tickCounter, _ = meter.Int64Counter("poller.ticks",
		metric.WithDescription("Number of poll ticks started"),
		metric.WithUnit("{tick}"))
	s.failureCounter, _ = meter.Int64Counter("poller.fetch.failures",
		metric.WithDescription("Collection fetches that failed"),
		metric.WithUnit("{fetch}"))
	s.tickDuration, _ = meter.Float64Histogram("poller.tick.duration",
		metric.WithDescription("Time for every collection fetch of one tick to complete"),
		metric.WithUnit("ms"))
	return s
}

// Register adds a collection to every subsequent tick.
func (s *Synchronizer) Register(target Fetcher) {
	if target == nil {
		return
	}
	s.mu.Lock()
	s.targets = append(s.targets, target)
	s.mu.Unlock()
}

// Interval returns the tick period.
func (s *Synchronizer) Interval() time.Duration { return s.interval }

// Ticks returns the number of ticks started.
func (s *Synchronizer) Ticks() uint64 { return s.ticks.Load() }

// Run ticks until ctx is done, then waits for in-flight ticks to finish.
func (s *Synchronizer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.inflight.Wait()

	s.logger.Info("poller started", observability.F("interval", s.interval.String()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poller stopped", observability.F("ticks", s.ticks.Load()))
			return nil
		case <-ticker.C:
			s.inflight.Go(func() {
				_ = s.Tick(ctx)
			})
		}
	}
}

// Tick fetches every collection in parallel. A failure in one collection
// never blocks the others; all failures are logged and returned joined.
func (s *Synchronizer) Tick(ctx context.Context) error {
	n := s.ticks.Add(1)
	started := time.Now()

	s.mu.RLock()
	targets := append([]Fetcher(nil), s.targets...)
	s.mu.RUnlock()

	s.tickCounter.Add(ctx, 1, metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))

	if len(targets) == 0 {
		return nil
	}
	results := make([]error, len(targets))
	p := pool.New().WithMaxGoroutines(len(targets))
	for i, target := range targets {
		p.Go(func() {
			err := target.Fetch(ctx)
			if err != nil {
				s.failureCounter.Add(context.WithoutCancel(ctx), 1,
					metric.WithAttributes(telemetry.CollectionAttributes(target.Name())...))
			}
			results[i] = err
		})
	}
	p.Wait()

	s.tickDuration.Record(context.WithoutCancel(ctx), float64(time.Since(started).Microseconds())/1000,
		metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))

	return observability.AggregateErrorsTo(s.logger, "poll tick", results,
		observability.F("tick", strconv.FormatUint(n, 10)),
		observability.F("collections", len(targets)))
}
