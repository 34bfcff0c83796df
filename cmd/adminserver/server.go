package adminserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/synnergy-chain/syncstore/core"
)

// New builds the admin HTTP server bound to addr, exposing:
//
//	GET /healthz  - liveness, always 200 once serving
//	GET /metrics  - Prometheus exposition format, scoped to reg
//	GET /tags     - JSON snapshot of every tag binding in stores
func New(addr string, stores *core.Stores, reg *prometheus.Registry, logger *logrus.Logger) *http.Server {
	accessLog, err := zap.NewProduction()
	if err != nil {
		accessLog = zap.NewNop()
	}
	logger.WithField("addr", addr).Info("admin http surface configured")

	r := chi.NewRouter()
	r.Use(logging(accessLog))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/tags", func(w http.ResponseWriter, r *http.Request) {
		tags := stores.Tags.List()
		out := make([]core.TagBinding, 0, len(tags))
		for _, t := range tags {
			out = append(out, core.TagBinding{Tag: t, Keys: stores.Tags.Read(t)})
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	})

	return &http.Server{Addr: addr, Handler: r}
}
