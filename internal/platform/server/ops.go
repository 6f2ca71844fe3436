package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/leave-ledger/internal/platform/metrics"
)

// ReadinessFunc は依存先の疎通を確認します。nil を返すと準備完了です。
type ReadinessFunc func(ctx context.Context) error

// NewOpsRouter は /metrics, /healthz, /readyz を提供する運用用ルーターを構築します。
func NewOpsRouter(recorder *metrics.Recorder, ready ReadinessFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if recorder != nil {
		r.Method(http.MethodGet, "/metrics", recorder.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return r
}

// OpsServer は運用用 HTTP リスナーです。
type OpsServer struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewOpsServer は OpsServer を生成します。
func NewOpsServer(addr string, h http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) *OpsServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run はリスナーを起動し、コンテキストがキャンセルされると停止します。
func (s *OpsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops listener started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve ops http: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ops http: %w", err)
	}
	return nil
}
