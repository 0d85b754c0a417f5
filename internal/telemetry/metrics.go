package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parambridge/internal/logging"
)

const namespace = "parambridge"

var (
	Notifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Value-changed notifications received from the authority.",
	})
	Changes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "changes_total",
		Help:      "Changed events emitted to subscribers, by origin.",
	}, []string{"origin"})
	Suppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "writes_suppressed_total",
		Help:      "Writes dropped before reaching the cache, by reason.",
	}, []string{"reason"})
	ActiveGrabs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "grabs_active",
		Help:      "Grab sessions currently registered by bridges in this process.",
	})
	ReadyBridges = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bridges_ready",
		Help:      "Bridges in this process whose load gate has opened.",
	})
	AuthorityErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authority_errors_total",
		Help:      "Failed authority requests, by operation.",
	}, []string{"op"})
	KernelRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kernel_requests_total",
		Help:      "Kernel RPCs served, by method and status code.",
	}, []string{"method", "code"})
	FeedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_records_total",
		Help:      "Change-feed records pushed to sinks, by sink and result.",
	}, []string{"sink", "result"})
)

// Suppression reasons.
const (
	ReasonNotReady    = "not_ready"
	ReasonUnchanged   = "unchanged"
	ReasonStaleHandle = "stale_handle"
	ReasonStaleSeq    = "stale_seq"
)

func init() {
	prometheus.MustRegister(
		Notifications,
		Changes,
		Suppressed,
		ActiveGrabs,
		ReadyBridges,
		AuthorityErrors,
		KernelRequests,
		FeedRecords,
	)
}

// Server serves /metrics.
type Server struct {
	http *http.Server
}

func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{http: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}}
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Expose starts a metrics server in the background. A port <= 0 disables it
// and returns nil.
func Expose(port int) *Server {
	if port <= 0 {
		return nil
	}
	s := NewServer(port)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			logging.L().Error("metrics: serve failed", "port", port, "err", err)
		}
	}()
	return s
}
