package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"Sentinel-X/internal/app"
	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// Version 是 /api/health 报告的服务版本。
const Version = "1.0.0"

// Server 负责暴露 REST 接口。
type Server struct {
	addr              string
	state             *app.State
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	log               *slog.Logger
}

// Option 定义 Server 的可选配置。
type Option func(*Server)

// WithReadHeaderTimeout 覆盖读取请求头的超时时间。
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readHeaderTimeout = d
		}
	}
}

// WithShutdownTimeout 覆盖优雅关闭的等待时间。
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, st *app.State, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		state:             st,
		readHeaderTimeout: 5 * time.Second,
		shutdownTimeout:   5 * time.Second,
		log:               logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回挂载了全部路由与中间件的 http.Handler。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/indexer/metrics", s.handleIndexerMetrics)
		r.Get("/indexer/feeds", s.handleListFeeds)
		r.Get("/indexer/feeds/{feedID}", s.handleGetFeed)
		r.Post("/indexer/ingest", s.handleIngest)
		r.Get("/indexer/agents/decisions", s.handleListDecisions)
		r.Post("/indexer/agents/decisions", s.handleRecordDecision)

		r.Post("/ai/query", s.handleQuery)
		r.Get("/ai/model", s.handleModelInfo)
		r.Post("/ai/contract/analyze", s.handleAnalyzeContract)
		r.Post("/ai/security/audit", s.handleSecurityAudit)
		r.Post("/ai/price/predict", s.handlePredictPrice)
		r.Post("/contract/explain", s.handleExplainContract)

		r.Get("/blocks", s.handleListBlocks)
		r.Get("/blocks/{number}", s.handleGetBlock)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/{hash}", s.handleGetTransaction)
		r.Get("/balances/{address}", s.handleGetBalance)
		r.Get("/price/{asset}", s.handleGetPrice)

		r.Get("/sentiment", s.handleSentiment)
		r.Post("/zkml/verify", s.handleZKMLVerify)
		r.Post("/models/deploy", s.handleDeployModel)
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API 服务已启动", "address", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
