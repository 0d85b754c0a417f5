// Command paramctl is an interactive client that mirrors a kernel's
// parameters through a bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"parambridge/cmd/paramctl/console"
	"parambridge/internal/bridge"
	"parambridge/internal/changefeed"
	"parambridge/internal/config"
	"parambridge/internal/logging"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
	"parambridge/internal/transport"
)

var errLoadTimeout = errors.New("load timeout")

func main() {
	configPath := flag.String("config", "parambridge.yml", "config file (missing file uses defaults)")
	printSchema := flag.Bool("config-schema", false, "print the config JSON schema and exit")
	target := flag.String("target", "", "kernel address (overrides client.target)")
	flag.Parse()

	if *printSchema {
		out, err := config.Schema()
		if err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *target != "" {
		cfg.Client.Target = *target
	}

	con, err := console.New()
	if err != nil {
		log.Fatalf("console: %v", err)
	}
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: con.Stdout()})
	lg := logging.For("paramctl")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := transport.Dial(cfg.Client.Target, transport.WithMoveRate(cfg.Client.MoveRate))
	if err != nil {
		lg.Error("dial failed", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	b, err := bridge.New(ctx, client,
		bridge.WithRequestTimeout(cfg.Client.RequestTimeout),
		bridge.WithErrorHandler(func(op bridge.Op, id param.ID, err error) {
			lg.Warn("request failed", "op", op, "param", id, "err", err)
		}),
	)
	if err != nil {
		lg.Error("bridge failed", "target", cfg.Client.Target, "err", err)
		os.Exit(1)
	}
	defer b.Close()

	feed, err := changefeed.Compile(cfg.Feed)
	if err != nil {
		lg.Error("change feed failed", "err", err)
		os.Exit(1)
	}
	defer feed.Close()
	if feed.Sinks() > 0 {
		sub := b.Subscribe(feed.OnChange)
		defer sub.Unsubscribe()
	}

	if m := telemetry.Expose(cfg.Metrics.Port); m != nil {
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			_ = m.Shutdown(sctx)
		}()
	}

	if err := waitLoaded(ctx, b, cfg.Client.LoadTimeout); err != nil {
		lg.Warn("parameters not loaded", "err", err, "missing", b.Missing())
	} else {
		lg.Info("parameters loaded", "target", cfg.Client.Target, "count", len(b.Descriptors()))
	}

	con.Attach(b, client)
	con.Run(ctx, cancel)
}

// waitLoaded blocks until the bridge cache is complete, d elapses or ctx ends.
func waitLoaded(ctx context.Context, b *bridge.Bridge, d time.Duration) error {
	loaded := make(chan struct{})
	var once sync.Once
	b.OnLoad(func() { once.Do(func() { close(loaded) }) })

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-loaded:
		return nil
	case <-t.C:
		return errLoadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
