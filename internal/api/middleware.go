package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"Sentinel-X/internal/observability/metrics"
)

// RequestIDHeader 携带请求 ID，调用方提供时原样沿用。
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestID 为每个请求分配 UUID 并写回响应头。
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFrom 返回中间件分配的请求 ID。
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// observe 记录请求指标与访问日志，handler 标签取路由模板避免高基数。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(route, r.Method, status, elapsed)
		s.log.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "服务已关闭")
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
