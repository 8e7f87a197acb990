package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"AutoFlow-Agent/internal/clock"
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/internal/observability/metrics"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/pkg/logger"
)

// RunSubmitter 投递已保存工作流的运行请求。
type RunSubmitter interface {
	Submit(ctx context.Context, workflowID string) (workflow.SavedWorkflow, error)
}

// Dependencies 汇总 API 需要的业务组件。
type Dependencies struct {
	Runner    *console.Runner
	Builder   *workflow.Builder
	Catalog   *workflow.Catalog
	Runs      RunSubmitter
	Dashboard *dashboard.State
}

// Server 负责暴露 REST 接口，供面板与 CLI 驱动控制台和工作流。
type Server struct {
	addr            string
	deps            Dependencies
	clock           clock.Clock
	logger          *slog.Logger
	shutdownTimeout time.Duration
	baseCtx         context.Context
}

// Option 定义可选配置。
type Option func(*Server)

// WithClock 指定导出文件名使用的时钟。
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithShutdownTimeout 指定优雅退出的等待时间。
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger 指定请求日志。
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, deps Dependencies, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		deps:            deps,
		clock:           clock.System(),
		logger:          logger.Named("api"),
		shutdownTimeout: 5 * time.Second,
		baseCtx:         context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回挂载全部路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/console", s.handleConsoleState)
	mux.HandleFunc("POST /api/v1/console/start", s.handleConsoleStart)
	mux.HandleFunc("POST /api/v1/console/stop", s.handleConsoleStop)
	mux.HandleFunc("POST /api/v1/console/retry", s.handleConsoleRetry)
	mux.HandleFunc("GET /api/v1/console/logs", s.handleListLogs)
	mux.HandleFunc("DELETE /api/v1/console/logs", s.handleClearLogs)
	mux.HandleFunc("GET /api/v1/console/logs/export", s.handleExportLogs)

	mux.HandleFunc("GET /api/v1/builder", s.handleBuilderState)
	mux.HandleFunc("GET /api/v1/builder/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/v1/builder/nodes", s.handleAddNode)
	mux.HandleFunc("DELETE /api/v1/builder/nodes/{id}", s.handleRemoveNode)
	mux.HandleFunc("POST /api/v1/builder/save", s.handleSaveDraft)
	mux.HandleFunc("POST /api/v1/builder/run", s.handleBuilderRun)
	mux.HandleFunc("GET /api/v1/builder/drafts", s.handleListDrafts)

	mux.HandleFunc("GET /api/v1/workflows", s.handleListWorkflows)
	mux.HandleFunc("GET /api/v1/workflows/stats", s.handleWorkflowStats)
	mux.HandleFunc("POST /api/v1/workflows/{id}/duplicate", s.handleDuplicateWorkflow)
	mux.HandleFunc("POST /api/v1/workflows/{id}/run", s.handleRunWorkflow)
	mux.HandleFunc("DELETE /api/v1/workflows/{id}", s.handleDeleteWorkflow)

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("PUT /api/v1/dashboard/section", s.handleNavigate)
	mux.HandleFunc("PUT /api/v1/dashboard/theme", s.handleSetTheme)
	mux.HandleFunc("POST /api/v1/dashboard/theme/toggle", s.handleToggleTheme)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return s.instrument(mux)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
// 控制台运行绑定在 ctx 上，而不是单个请求的上下文。
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("API 服务已启动", slog.String("addr", s.addr))

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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument 记录每个请求的路由、状态码与耗时。
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(route, r.Method, rec.status, elapsed)
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("请求处理失败",
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("elapsed", elapsed),
			)
		}
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "服务已关闭"))
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Code    xerrors.Code `json:"code"`
	Message string       `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := xerrors.HTTPStatusOf(err)
	code := xerrors.CodeOf(err)
	message := err.Error()
	if e, ok := xerrors.From(err); ok && e.Message() != "" {
		message = e.Message()
	}
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败")
	}
	return nil
}

func unavailable(component string) error {
	return xerrors.New(xerrors.CodeInitializationFailure, component+" 未初始化")
}
