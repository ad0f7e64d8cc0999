// Package desk is the application context: it owns the collections, the
// router, the synchronizer and the mounted screen.
package desk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/collection"
	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/poller"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/infra/telemetry"
	"github.com/coachpo/traderdesk/internal/observability"
	"github.com/coachpo/traderdesk/lib/async"
)

const resource = "desk"

const (
	defaultWriteWorkers     = 4
	defaultBootstrapTimeout = 30 * time.Second
	defaultShutdownTimeout  = 5 * time.Second
)

// Gateway is the REST resource set the desk drives.
type Gateway interface {
	ListOrders(ctx context.Context) ([]schema.Order, error)
	ListExecutions(ctx context.Context) ([]schema.Execution, error)
	ListInstruments(ctx context.Context) ([]schema.Instrument, error)
	ListMarketData(ctx context.Context) ([]schema.MarketData, error)
	GetOrder(ctx context.Context, id int) (schema.Order, error)
	GetExecution(ctx context.Context, id int) (schema.Execution, error)
	CreateOrder(ctx context.Context, req schema.NewOrderRequest) (schema.Order, error)
	AmendOrder(ctx context.Context, id int, req schema.AmendRequest) (schema.Order, error)
	CancelOrder(ctx context.Context, id int) error
	RequestSecurityDefinition(ctx context.Context, req schema.SecurityDefinitionRequest) error
	RequestMarketData(ctx context.Context, req schema.MarketDataRequest) error
}

// Options configures a Desk.
type Options struct {
	Gateway          Gateway
	Forms            forms.Context
	Surface          view.Surface
	PollInterval     time.Duration
	BootstrapTimeout time.Duration
	WriteWorkers     int
	Logger           observability.Logger
}

// Snapshot seeds collections before the first poll. Nil slices are skipped.
type Snapshot struct {
	Orders      []schema.Order
	Executions  []schema.Execution
	Instruments []schema.Instrument
	MarketData  []schema.MarketData
}

// Desk is built once at startup and shared by every screen.
type Desk struct {
	gw               Gateway
	fc               forms.Context
	surface          view.Surface
	logger           observability.Logger
	bootstrapTimeout time.Duration

	orders      *collection.Collection[schema.Order]
	executions  *collection.Collection[schema.Execution]
	instruments *collection.Collection[schema.Instrument]
	marketData  *collection.Collection[schema.MarketData]

	router   *router.Router
	sync     *poller.Synchronizer
	writes   *async.Pool
	handlers map[view.Action]handler

	generation atomic.Uint64
	pending    sync.WaitGroup

	mu     sync.Mutex
	screen *screen

	actionCounter metric.Int64Counter
	staleCounter  metric.Int64Counter
}

// New wires the application context. No screen is mounted until Start.
func New(opts Options) (*Desk, error) {
	if opts.Gateway == nil {
		return nil, errs.New(resource, errs.CodeInvalid, errs.WithMessage("gateway required"))
	}
	logger := observability.OrDefault(opts.Logger)
	surface := opts.Surface
	if surface == nil {
		surface = view.SurfaceFunc(func(view.Frame) {})
	}
	workers := opts.WriteWorkers
	if workers <= 0 {
		workers = defaultWriteWorkers
	}
	writes, err := async.NewPool(workers, workers*4, logger)
	if err != nil {
		return nil, err
	}
	bootstrap := opts.BootstrapTimeout
	if bootstrap <= 0 {
		bootstrap = defaultBootstrapTimeout
	}

	d := &Desk{
		gw:               opts.Gateway,
		fc:               opts.Forms,
		surface:          surface,
		logger:           logger,
		bootstrapTimeout: bootstrap,
		writes:           writes,
	}
	d.orders = collection.New(collection.Options[schema.Order]{
		Name:    "orders",
		List:    opts.Gateway.ListOrders,
		Destroy: opts.Gateway.CancelOrder,
		Logger:  logger,
	})
	d.executions = collection.New(collection.Options[schema.Execution]{
		Name:   "executions",
		List:   opts.Gateway.ListExecutions,
		Logger: logger,
	})
	d.instruments = collection.New(collection.Options[schema.Instrument]{
		Name:   "instruments",
		List:   opts.Gateway.ListInstruments,
		Logger: logger,
	})
	d.marketData = collection.New(collection.Options[schema.MarketData]{
		Name:   "marketdata",
		List:   opts.Gateway.ListMarketData,
		Logger: logger,
	})
	d.sync = poller.New(poller.Options{Interval: opts.PollInterval, Logger: logger},
		d.orders, d.executions, d.instruments, d.marketData)
	d.router = router.New(d.activate, logger)
	d.handlers = d.actionTable()

	meter := otel.Meter("desk")
	d.actionCounter, _ = meter.Int64Counter("desk.actions",
		metric.WithDescription("User actions dispatched"),
		metric.WithUnit("{action}"))
	d.staleCounter, _ = meter.Int64Counter("desk.stale_completions",
		metric.WithDescription("Async completions discarded after the screen changed"),
		metric.WithUnit("{completion}"))
	return d, nil
}

// Orders returns the orders collection.
func (d *Desk) Orders() *collection.Collection[schema.Order] { return d.orders }

// Executions returns the executions collection.
func (d *Desk) Executions() *collection.Collection[schema.Execution] { return d.executions }

// Instruments returns the instruments collection.
func (d *Desk) Instruments() *collection.Collection[schema.Instrument] { return d.instruments }

// MarketData returns the market data collection.
func (d *Desk) MarketData() *collection.Collection[schema.MarketData] { return d.marketData }

// Synchronizer returns the poller refreshing the collections.
func (d *Desk) Synchronizer() *poller.Synchronizer { return d.sync }

// Generation returns the activation counter of the mounted screen.
func (d *Desk) Generation() uint64 { return d.generation.Load() }

// Seed replaces collection contents with startup snapshots.
func (d *Desk) Seed(s Snapshot) {
	if s.Orders != nil {
		d.orders.Reset(s.Orders)
	}
	if s.Executions != nil {
		d.executions.Reset(s.Executions)
	}
	if s.Instruments != nil {
		d.instruments.Reset(s.Instruments)
	}
	if s.MarketData != nil {
		d.marketData.Reset(s.MarketData)
	}
}

// Start mounts the screen for path.
func (d *Desk) Start(path string) error {
	return d.router.Navigate(path)
}

// Navigate moves to path.
func (d *Desk) Navigate(path string) error {
	return d.router.Navigate(path)
}

// Follow routes an internal link.
func (d *Desk) Follow(link router.Link) bool {
	return d.router.Follow(link)
}

// Back returns to the previous history entry. It reports false when there
// is none.
func (d *Desk) Back() bool {
	_, ok := d.router.Back()
	return ok
}

// Current returns the mounted route.
func (d *Desk) Current() (router.Route, bool) {
	return d.router.Current()
}

// Run seeds the collections, then polls until ctx is done. A bootstrap that
// runs out of time is logged and polling starts anyway.
func (d *Desk) Run(ctx context.Context) error {
	if err := d.Bootstrap(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		d.logger.Warn("bootstrap incomplete, continuing with polling", observability.Err(err))
	}
	return d.sync.Run(ctx)
}

// Close waits for queued writes and loads to finish.
func (d *Desk) Close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}
	return d.writes.Shutdown(ctx)
}

// submit runs task on the write pool, detached from the caller's cancellation.
func (d *Desk) submit(ctx context.Context, task async.Task) error {
	d.pending.Add(1)
	err := d.writes.Submit(context.WithoutCancel(ctx), func(ctx context.Context) error {
		defer d.pending.Done()
		return task(ctx)
	})
	if err != nil {
		d.pending.Done()
	}
	return err
}

func (d *Desk) recordStale(gen uint64, op string) {
	d.staleCounter.Add(context.Background(), 1, metric.WithAttributes(telemetry.AttrAction.String(op)))
	d.logger.Debug("discarded stale completion",
		observability.F("operation", op),
		observability.F("generation", gen),
		observability.F("current", d.generation.Load()))
}
