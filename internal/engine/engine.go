package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"parambridge/internal/changefeed"
	"parambridge/internal/kernel"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
	"parambridge/internal/transport"
)

type Engine struct {
	log   *slog.Logger
	grace time.Duration

	kernel  *kernel.Kernel
	descs   []param.Descriptor
	server  *transport.Server
	lis     net.Listener
	feed    *changefeed.Runner
	unwatch func()
	metrics *telemetry.Server
}

// Addr is the address the gRPC server listens on.
func (e *Engine) Addr() net.Addr { return e.lis.Addr() }

func (e *Engine) Kernel() *kernel.Kernel { return e.kernel }

// Run serves until ctx ends or a server fails, then shuts everything down.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.server.Serve(e.lis) })
	if e.metrics != nil {
		g.Go(e.metrics.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		e.shutdown()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) shutdown() {
	e.log.Info("engine: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), e.grace)
	defer cancel()

	if e.unwatch != nil {
		e.unwatch()
	}
	// closing the kernel ends open Watch streams so the server can drain
	_ = e.kernel.Close()
	e.server.Stop(ctx)
	_ = e.lis.Close()
	if e.metrics != nil {
		if err := e.metrics.Shutdown(ctx); err != nil {
			e.log.Warn("engine: metrics shutdown", "err", err)
		}
	}
	if err := e.feed.Close(); err != nil {
		e.log.Warn("engine: changefeed close", "err", err)
	}
}
