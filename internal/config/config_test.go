package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SupportedSchema, cfg.SchemaVersion)
	assert.Equal(t, ":7070", cfg.Kernel.Listen)
	assert.Equal(t, "localhost:7070", cfg.Client.Target)
	assert.Equal(t, 2*time.Second, cfg.Client.RequestTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Feed.Sinks)
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	p := writeFile(t, "parambridge.yml", `schema_version: v1
log:
  level: debug
kernel:
  listen: ":7171"
  latency: 15ms
client:
  target: kernel.local:7171
  move_rate: 60
metrics:
  port: 9100
feed:
  sinks: [stdout]
  stdout:
    print_counter: true
`)
	t.Setenv("PARAMBRIDGE__KERNEL__LISTEN", ":9000")
	t.Setenv("PARAMBRIDGE__CLIENT__REQUEST_TIMEOUT", "750ms")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9000", cfg.Kernel.Listen, "env wins over the file")
	assert.Equal(t, 15*time.Millisecond, cfg.Kernel.Latency)
	assert.Equal(t, "kernel.local:7171", cfg.Client.Target)
	assert.Equal(t, 750*time.Millisecond, cfg.Client.RequestTimeout)
	assert.Equal(t, 60, cfg.Client.MoveRate)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, []string{"stdout"}, cfg.Feed.Sinks)
	assert.True(t, cfg.Feed.Stdout.PrintCounter)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"schema":       "schema_version: v999\n",
		"level":        "log: {level: loud}\n",
		"sink":         "feed: {sinks: [carrier_pigeon]}\n",
		"port":         "metrics: {port: 70000}\n",
		"kafka fields": "feed: {sinks: [kafka]}\n",
		"acks":         "feed: {kafka: {required_acks: some}}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yml", body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ValidationUsesKoanfKeys(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yml", "client: {move_rate: -1}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "move_rate")
}

func TestLoad_KafkaSink(t *testing.T) {
	p := writeFile(t, "kafka.yml", `feed:
  sinks: [kafka]
  kafka:
    brokers: [localhost:9092]
    topic: param-changes
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Feed.Kafka.RequiredAcks)
	assert.Equal(t, "parambridge", cfg.Feed.Kafka.ClientID)
}

func TestSchema(t *testing.T) {
	raw, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	for _, key := range []string{"schema_version", "log", "kernel", "client", "metrics", "feed"} {
		assert.Contains(t, props, key)
	}
}
