package metrics

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// HTTPMetricsMiddleware records request count and latency under handlerName.
// A handler that never writes a status is counted as 200.
func HTTPMetricsMiddleware(m *Metrics, handlerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				m.RecordHTTPRequest(handlerName, r.Method, status, time.Since(start).Seconds())
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
