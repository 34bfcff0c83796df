// Package adminserver implements the syncstore node's read-only HTTP
// surface: health, Prometheus metrics, and tag inspection. It is kept
// separate from the sync protocol listener in core.Server because it speaks
// HTTP/chi rather than the binary frame protocol.
package adminserver

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// logging wraps next with a request-scoped access log line. The admin
// surface logs through zap rather than the domain logrus logger used by
// core, keeping access logging a separate concern from sync/merge event
// logging.
func logging(z *zap.Logger) func(http.Handler) http.Handler {
	sugar := z.Sugar()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			sugar.Infow("admin http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}
