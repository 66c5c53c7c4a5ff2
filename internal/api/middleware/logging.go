package middleware

import (
	"net/http"
	"time"

	"book_market/internal/platform/logging"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RequestLogger attaches a request scoped logrus entry to the context and
// logs one line per completed request. The request id is echoed in the
// response headers. It expects chi's RequestID upstream.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				ww.Header().Set(chiMiddleware.RequestIDHeader, reqID)
			}

			entry := log.WithFields(logrus.Fields{
				"http.req.path":   r.URL.Path,
				"http.req.method": r.Method,
				"http.req.id":     reqID,
			})

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := entry.WithFields(logrus.Fields{
					"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
					"http.resp.status":  status,
					"http.resp.bytes":   ww.BytesWritten(),
				})
				if status >= http.StatusInternalServerError {
					fields.Warn("request complete")
				} else {
					fields.Info("request complete")
				}
			}()

			next.ServeHTTP(ww, r.WithContext(logging.WithContext(r.Context(), entry)))
		})
	}
}
