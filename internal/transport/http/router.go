// Package httptransport assembles the chi router: audit routes behind the
// shared middleware chain, plus health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "audittrail/internal/audit/handler"
	"audittrail/internal/platform/metrics"
	"audittrail/internal/platform/middleware"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/httputil"
)

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires all endpoints.
func NewRouter(
	audit *audithandler.Handler,
	health Pinger,
	logger *slog.Logger,
	m *metrics.Metrics,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	audit.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := health.Ping(req.Context()); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unreachable"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
