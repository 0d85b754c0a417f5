// Command kernel serves a parameter kernel over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"parambridge/internal/config"
	"parambridge/internal/engine"
	"parambridge/internal/logging"
)

func main() {
	configPath := flag.String("config", "parambridge.yml", "config file (missing file uses defaults)")
	printSchema := flag.Bool("config-schema", false, "print the config JSON schema and exit")
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
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	logging.For("kernel").Info("serving", "addr", e.Addr().String(), "params", len(e.Descriptors()))

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
