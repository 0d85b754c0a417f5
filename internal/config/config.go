// Package config loads the process configuration shared by the kernel
// server and paramctl.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks overrides such as PARAMBRIDGE__KERNEL__LISTEN=:9000.
// Double underscores separate nesting levels.
const EnvPrefix = "PARAMBRIDGE__"

type Config struct {
	SchemaVersion string        `koanf:"schema_version" validate:"eq=v1"`
	Log           LogConfig     `koanf:"log"`
	Kernel        KernelConfig  `koanf:"kernel"`
	Client        ClientConfig  `koanf:"client"`
	Metrics       MetricsConfig `koanf:"metrics"`
	Feed          FeedConfig    `koanf:"feed"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	JSON  bool   `koanf:"json"`
}

type KernelConfig struct {
	Listen string `koanf:"listen" validate:"required" jsonschema:"description=gRPC listen address"`
	// Descriptors is a descriptor file; empty serves the demo set.
	Descriptors   string        `koanf:"descriptors"`
	Latency       time.Duration `koanf:"latency" validate:"gte=0" jsonschema:"description=artificial delay added to every kernel request"`
	ShutdownGrace time.Duration `koanf:"shutdown_grace" validate:"gte=0"`
}

type ClientConfig struct {
	Target         string        `koanf:"target" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gte=0"`
	LoadTimeout    time.Duration `koanf:"load_timeout" validate:"gte=0"`
	MoveRate       int           `koanf:"move_rate" validate:"gte=0" jsonschema:"description=max grab moves per second; 0 is unlimited"`
}

type MetricsConfig struct {
	Port int `koanf:"port" validate:"gte=0,lte=65535" jsonschema:"description=Prometheus port; 0 disables"`
}

type FeedConfig struct {
	Sinks  []string     `koanf:"sinks" validate:"dive,oneof=stdout kafka"`
	Stdout StdoutConfig `koanf:"stdout"`
	Kafka  KafkaConfig  `koanf:"kafka"`
}

type StdoutConfig struct {
	PrintCounter bool `koanf:"print_counter"`
}

type KafkaConfig struct {
	Brokers       []string      `koanf:"brokers"`
	Topic         string        `koanf:"topic"`
	ClientID      string        `koanf:"client_id"`
	Version       string        `koanf:"version"`
	RequiredAcks  string        `koanf:"required_acks" validate:"omitempty,oneof=none local all"`
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report koanf keys instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})
	return v
}

// Load merges YAML (if present) with env-vars (prefix PARAMBRIDGE__, nesting
// delimiter __), applies defaults and validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg)
	if err := check(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Kernel.Listen == "" {
		c.Kernel.Listen = ":7070"
	}
	if c.Kernel.ShutdownGrace == 0 {
		c.Kernel.ShutdownGrace = 5 * time.Second
	}
	if c.Client.Target == "" {
		c.Client.Target = "localhost:7070"
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = 2 * time.Second
	}
	if c.Client.LoadTimeout == 0 {
		c.Client.LoadTimeout = 10 * time.Second
	}
	if c.Feed.Kafka.ClientID == "" {
		c.Feed.Kafka.ClientID = "parambridge"
	}
	if c.Feed.Kafka.RequiredAcks == "" {
		c.Feed.Kafka.RequiredAcks = "local"
	}
	if c.Feed.Kafka.FlushInterval == 0 {
		c.Feed.Kafka.FlushInterval = 100 * time.Millisecond
	}
}

func check(c Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if slices.Contains(c.Feed.Sinks, "kafka") {
		if len(c.Feed.Kafka.Brokers) == 0 || c.Feed.Kafka.Topic == "" {
			return errors.New("config: feed.kafka needs brokers and topic when the kafka sink is enabled")
		}
	}
	return nil
}
