package changefeed

import (
	"fmt"

	"parambridge/internal/config"
	"parambridge/sink"
	"parambridge/sink/kafka"
	"parambridge/sink/stdout"
)

// Compile builds a runner with the sinks named in cfg. An empty sink list
// yields a runner that publishes nowhere.
func Compile(cfg config.FeedConfig, opts ...Option) (*Runner, error) {
	r := NewRunner(opts...)
	for _, name := range cfg.Sinks {
		drv, err := sink.NewAdapter(name)
		if err != nil {
			_ = r.Close()
			return nil, err
		}

		switch name {
		case "stdout":
			err = drv.Configure(stdout.Config{PrintCounter: cfg.Stdout.PrintCounter})
		case "kafka":
			err = drv.Configure(kafka.Config{
				Brokers:       cfg.Kafka.Brokers,
				Topic:         cfg.Kafka.Topic,
				ClientID:      cfg.Kafka.ClientID,
				Version:       cfg.Kafka.Version,
				RequiredAcks:  cfg.Kafka.RequiredAcks,
				FlushInterval: cfg.Kafka.FlushInterval,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, drv)
	}
	return r, nil
}
