// Command fakegateway serves an in-memory trading gateway for local runs of
// the desk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/infra/gateway/fake"
	"github.com/coachpo/traderdesk/internal/observability"
)

const (
	defaultAddr       = ":8080"
	defaultSessions   = "FIX.4.2:TRADER->EXCHANGE"
	defaultFillPrice  = "100"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type options struct {
	addr     string
	sessions []string
	fillTick time.Duration
	logLevel string
}

func main() {
	opts := parseFlags()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := observability.NewWriterLogger(os.Stdout, observability.LogConfig{Level: opts.logLevel, Format: "text"})
	if err := run(ctx, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "fakegateway: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func parseFlags() options {
	addr := flag.String("addr", defaultAddr, "listen address")
	sessions := flag.String("sessions", defaultSessions, "comma separated session ids accepted on writes")
	fillTick := flag.Duration("fill-every", 0, "fill the oldest live order at this interval (0 disables)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()
	return options{
		addr:     *addr,
		sessions: splitList(*sessions),
		fillTick: *fillTick,
		logLevel: *logLevel,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func run(ctx context.Context, opts options, logger observability.Logger) error {
	backend := fake.NewBackend(fake.Options{SessionIDs: opts.sessions})
	server := &http.Server{
		Addr:              opts.addr,
		Handler:           fake.NewHandler(backend, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var wg conc.WaitGroup
	serveErr := make(chan error, 1)
	wg.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})
	if opts.fillTick > 0 {
		wg.Go(func() { fillLoop(ctx, backend, opts.fillTick, logger) })
	}
	logger.Info("fake gateway listening",
		observability.F("addr", opts.addr),
		observability.F("sessions", strings.Join(opts.sessions, ",")))

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("shutdown failed", observability.Err(shutdownErr))
	}
	wg.Wait()
	return err
}

// fillLoop fully fills the oldest live order on every tick.
func fillLoop(ctx context.Context, backend *fake.Backend, every time.Duration, logger observability.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fillOldest(backend, logger)
		}
	}
}

func fillOldest(backend *fake.Backend, logger observability.Logger) {
	for _, order := range backend.Orders() {
		if !order.Live() {
			continue
		}
		price := order.Price
		if price == "" {
			price = defaultFillPrice
		}
		exec, err := backend.Fill(order.ID, order.Open, price)
		if err != nil {
			logger.Warn("fill failed", observability.F("order", schema.FormatID(order.ID)), observability.Err(err))
			return
		}
		logger.Info("order filled",
			observability.F("order", schema.FormatID(order.ID)),
			observability.F("execution", schema.FormatID(exec.ID)))
		return
	}
}
