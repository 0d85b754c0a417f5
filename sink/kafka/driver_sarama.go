// Package kafka is a change-feed sink publishing records to a Kafka topic
// through a sarama AsyncProducer. Records are keyed by parameter id so every
// change of one parameter lands on the same partition, in order.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"parambridge/internal/logging"
	"parambridge/sink"
)

type Config struct {
	Brokers       []string
	Topic         string
	ClientID      string
	Version       string        // e.g. "3.6.0"; empty keeps sarama's default
	RequiredAcks  string        // none|local|all
	FlushInterval time.Duration // producer batching window
}

// ParseAcks maps none|local|all to sarama's RequiredAcks.
func ParseAcks(s string) (sarama.RequiredAcks, error) {
	switch s {
	case "none":
		return sarama.NoResponse, nil
	case "", "local":
		return sarama.WaitForLocal, nil
	case "all":
		return sarama.WaitForAll, nil
	}
	return 0, fmt.Errorf("kafka-sink: unknown required_acks %q", s)
}

// SaramaConfig builds the producer configuration for c. Successes are
// returned so delivered records can be acknowledged.
func SaramaConfig(c Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if c.ClientID != "" {
		sc.ClientID = c.ClientID
	}
	if c.Version != "" {
		ver, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, fmt.Errorf("kafka-sink: %w", err)
		}
		sc.Version = ver
	}
	acks, err := ParseAcks(c.RequiredAcks)
	if err != nil {
		return nil, err
	}
	sc.Producer.RequiredAcks = acks
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Flush.Frequency = c.FlushInterval
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	return sc, nil
}

type driver struct {
	cfg Config
	log *slog.Logger

	newProducer func([]string, *sarama.Config) (sarama.AsyncProducer, error)

	mu     sync.Mutex // guards p+closed against Push racing Close
	p      sarama.AsyncProducer
	ack    sink.EmitFn
	closed bool
	wg     sync.WaitGroup
}

func newDriver() *driver {
	return &driver{
		log:         logging.For("sink.kafka"),
		newProducer: sarama.NewAsyncProducer,
	}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: expected Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	sc, err := SaramaConfig(cfg)
	if err != nil {
		return err
	}
	p, err := d.newProducer(cfg.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	d.cfg = cfg
	d.p = p
	d.wg.Add(2)
	go d.successes()
	go d.errors()
	return nil
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func (d *driver) Push(r sink.Record) error {
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("kafka-sink: encode: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.p == nil {
		return errors.New("kafka-sink: not open")
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic:    d.cfg.Topic,
		Key:      sarama.StringEncoder(r.Param),
		Value:    sarama.ByteEncoder(val),
		Metadata: r,
	}
	return nil
}

// Close flushes buffered messages and waits for their results.
func (d *driver) Close() error {
	d.mu.Lock()
	if d.closed || d.p == nil {
		d.closed = true
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	p := d.p
	d.mu.Unlock()

	p.AsyncClose()
	d.wg.Wait()
	return nil
}

func (d *driver) successes() {
	defer d.wg.Done()
	for msg := range d.p.Successes() {
		if r, ok := msg.Metadata.(sink.Record); ok && d.ack != nil {
			d.ack(r)
		}
	}
}

func (d *driver) errors() {
	defer d.wg.Done()
	for perr := range d.p.Errors() {
		param := ""
		if r, ok := perr.Msg.Metadata.(sink.Record); ok {
			param = r.Param
		}
		d.log.Warn("kafka-sink: delivery failed", "topic", d.cfg.Topic, "param", param, "err", perr.Err)
	}
}

func init() { sink.Register("kafka", func() sink.Adapter { return newDriver() }) }
