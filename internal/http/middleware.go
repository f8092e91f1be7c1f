package httpapi

import (
	"net/http"
	"strings"
	"time"

	"doctor-portal/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bearerToken 从 Authorization 头取门户会话令牌
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// requireSession 解析会话并放入 context；失败返回 401 + ResultTokenExpired
func (h *PortalHandler) requireSession(next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(session.WithSession(r.Context(), sess)), sess)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog 记录请求日志并回写 X-Request-Id
func withRequestLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
