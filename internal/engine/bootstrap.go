package engine

import (
	"fmt"
	"net"

	"parambridge/internal/changefeed"
	"parambridge/internal/config"
	"parambridge/internal/kernel"
	"parambridge/internal/logging"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
	"parambridge/internal/transport"
)

// Bootstrap builds the kernel process: descriptors, kernel, change feed,
// gRPC server and metrics. Nothing is served until Run.
func Bootstrap(cfg config.Config) (*Engine, error) {
	log := logging.For("engine")

	// 1. descriptors + kernel
	descs := config.DemoDescriptors()
	if cfg.Kernel.Descriptors != "" {
		var err error
		if descs, err = config.LoadDescriptorFile(cfg.Kernel.Descriptors); err != nil {
			return nil, fmt.Errorf("descriptors: %w", err)
		}
	}
	k, err := kernel.New(descs, kernel.WithLatency(cfg.Kernel.Latency))
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}

	// 2. change feed
	feed, err := changefeed.Compile(cfg.Feed)
	if err != nil {
		_ = k.Close()
		return nil, fmt.Errorf("changefeed: %w", err)
	}
	var unwatch func()
	if feed.Sinks() > 0 {
		if unwatch, err = k.ListenSeq(feed.OnNotification); err != nil {
			_ = feed.Close()
			_ = k.Close()
			return nil, fmt.Errorf("changefeed: %w", err)
		}
	}

	// 3. transport
	lis, err := net.Listen("tcp", cfg.Kernel.Listen)
	if err != nil {
		if unwatch != nil {
			unwatch()
		}
		_ = feed.Close()
		_ = k.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 4. metrics
	var metrics *telemetry.Server
	if cfg.Metrics.Port > 0 {
		metrics = telemetry.NewServer(cfg.Metrics.Port)
	}

	log.Info("engine: ready",
		"listen", lis.Addr().String(),
		"params", len(descs),
		"sinks", cfg.Feed.Sinks,
		"metrics_port", cfg.Metrics.Port)

	return &Engine{
		log:     log,
		grace:   cfg.Kernel.ShutdownGrace,
		kernel:  k,
		descs:   descs,
		server:  transport.NewServer(k),
		lis:     lis,
		feed:    feed,
		unwatch: unwatch,
		metrics: metrics,
	}, nil
}

// Descriptors lists the parameters the kernel serves.
func (e *Engine) Descriptors() []param.Descriptor { return e.descs }
