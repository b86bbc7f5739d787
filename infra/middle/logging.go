package middle

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mstgnz/gobuckaroo/infra/logger"
)

// RequestLoggingMiddleware logs every request with its status and duration.
// Bodies are never logged here; gateway exchanges are recorded by the service layer.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := middleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logCtx := logger.LogContext{
				TenantID:  GetTenantIDFromContext(r.Context()),
				RequestID: requestID,
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("Request failed", nil, logCtx)
			case status >= http.StatusBadRequest:
				logger.Warn("Request rejected", logCtx)
			default:
				logger.Info("Request completed", logCtx)
			}
		})
	}
}
