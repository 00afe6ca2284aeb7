package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"autosubrt-server-go/internal/app/services"
	"autosubrt-server-go/internal/domain/asr"
	"autosubrt-server-go/internal/domain/eventbus"
	"autosubrt-server-go/internal/domain/job"
	"autosubrt-server-go/internal/domain/media"
	platformconfig "autosubrt-server-go/internal/platform/config"
	platformerrors "autosubrt-server-go/internal/platform/errors"
	platformlogging "autosubrt-server-go/internal/platform/logging"
	platformobservability "autosubrt-server-go/internal/platform/observability"
	httptransport "autosubrt-server-go/internal/transport/http"
	httpasr "autosubrt-server-go/internal/transport/http/asrapi"
	_ "autosubrt-server-go/internal/transport/http/docs"
)

const tag = "引导"

// Options 启动参数
type Options struct {
	ConfigPath string
	DotEnv     bool
	// LogWriter 非空时日志只写入该 writer，不创建日志文件（CLI 单次命令使用）
	LogWriter io.Writer
	// Configure 在配置加载后、其余步骤之前调整配置
	Configure func(cfg *platformconfig.Config)
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	ownLogger             bool
	observabilityShutdown platformobservability.ShutdownFunc
	metricsHandler        http.Handler
	jobs                  job.Store
	engine                *asr.Engine
	events                *eventbus.AsyncEventBus
	recognition           *services.RecognitionService
}

// App 初始化完成的服务组件
type App struct {
	Config      *platformconfig.Config
	Logger      *platformlogging.Logger
	Engine      *asr.Engine
	Recognition *services.RecognitionService

	state *appState
}

// Build 依次执行初始化步骤，返回可直接使用的组件。调用方负责 Close。
func Build(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts}
	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		state.close(context.Background())
		return nil, err
	}
	return &App{
		Config:      state.config,
		Logger:      state.logger,
		Engine:      state.engine,
		Recognition: state.recognition,
		state:       state,
	}, nil
}

// Close 释放事件总线、任务存储、可观测性与日志
func (a *App) Close(ctx context.Context) {
	a.state.close(ctx)
}

func (s *appState) close(ctx context.Context) {
	if s.events != nil {
		s.events.Stop()
	}
	if s.jobs != nil {
		if err := s.jobs.Close(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("存储", "任务存储未正常关闭: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.observabilityShutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.WarnTag(tag, "可观测性未正常关闭: %v", err)
		}
	}
	if s.logger != nil && s.ownLogger {
		s.logger.Close()
	}
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, opts Options) error {
	app, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	logger := app.Logger
	logBootstrapGraph(logger, InitGraph())

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(app.state, group, groupCtx); err != nil {
		cancel()
		return platformerrors.Wrap(platformerrors.KindTransport, "http:start", "启动 Http 服务失败", err)
	}
	group.Go(func() error {
		return runJobCleanup(groupCtx, app.state)
	})

	return waitForShutdown(signalCtx, groupCtx, cancel, logger, group)
}

func logBootstrapGraph(logger *platformlogging.Logger, steps []initStep) {
	if logger == nil {
		return
	}
	logger.InfoTag(tag, "初始化依赖关系概览")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag(tag, "%s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag(tag, "%s (%s) <- %v", step.ID, step.Title, step.DependsOn)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph 返回按依赖排好序的初始化步骤
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "jobs:init-store",
			Title:     "Initialise job store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initJobStoreStep,
		},
		{
			ID:        "asr:load-engine",
			Title:     "Load recognition engine",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindRecognition,
			Execute:   loadEngineStep,
		},
		{
			ID:        "eventbus:start",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   startEventBusStep,
		},
		{
			ID:        "services:init-recognition",
			Title:     "Initialise recognition service",
			DependsOn: []string{"jobs:init-store", "asr:load-engine", "eventbus:start"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initRecognitionStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().
		WithDotEnv(state.opts.DotEnv).
		WithPath(state.opts.ConfigPath).
		Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.opts.Configure != nil {
		state.opts.Configure(state.config)
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	if state.opts.LogWriter != nil {
		state.logger = platformlogging.NewWithWriters(state.config.Log.Level, io.Discard, state.opts.LogWriter)
	} else {
		logger, err := platformlogging.New(platformlogging.Config{
			Level:    state.config.Log.Level,
			Dir:      state.config.Log.Dir,
			Filename: state.config.Log.File,
		})
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
		}
		state.logger = logger
		state.ownLogger = true
	}

	state.logger.InfoTag(tag, "日志模块就绪 [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	obs := state.config.Observability
	shutdown, handler, err := platformobservability.Setup(ctx, platformobservability.Config{
		Enabled:      obs.Enabled,
		ServiceName:  obs.ServiceName,
		OTLPEndpoint: obs.OTLPEndpoint,
		OTLPInsecure: obs.OTLPInsecure,
	}, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	state.metricsHandler = handler
	return nil
}

func initJobStoreStep(ctx context.Context, state *appState) error {
	store, err := job.New(ctx, state.config.Jobs)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "jobs:init-store", "failed to initialize job store", err)
	}
	state.jobs = store
	state.logger.InfoTag("存储", "任务存储就绪: %s", state.config.Jobs.Store)
	return nil
}

// loadEngineStep 引擎加载失败直接终止启动
func loadEngineStep(_ context.Context, state *appState) error {
	engine := asr.NewEngine(state.config.ASR, asr.NewRegistry(), state.logger)
	if err := engine.Load(); err != nil {
		return err
	}
	state.engine = engine
	return nil
}

func startEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(2, 256, state.logger)
	if err := eventbus.SetupEventHandlers(bus, eventbus.NewLogHandler(state.logger)); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:start", "failed to subscribe event handlers", err)
	}
	bus.Start()
	state.events = bus
	return nil
}

func initRecognitionStep(_ context.Context, state *appState) error {
	svc, err := services.NewRecognitionService(&services.RecognitionConfig{
		Fetcher:  media.NewDownloader(state.config.Download, state.logger),
		Engine:   state.engine,
		Jobs:     state.jobs,
		Events:   state.events,
		Logger:   state.logger,
		Storage:  state.config.Storage,
		Subtitle: state.config.Subtitle,
	})
	if err != nil {
		return err
	}
	if err := svc.PrepareDirs(); err != nil {
		return err
	}
	state.recognition = svc
	return nil
}

// runJobCleanup 定期清理过期任务记录
func runJobCleanup(ctx context.Context, state *appState) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := state.jobs.CleanupExpired(ctx); err != nil {
				state.logger.WarnTag("存储", "清理过期任务失败: %v", err)
			}
		}
	}
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		MetricsHandler: state.metricsHandler,
	})
	if err != nil {
		return nil, err
	}

	asrService, err := httpasr.NewService(state.recognition, state.engine, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "ASR 服务初始化失败: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "asr:new-service", "failed to create asr service", err)
	}
	asrService.Register(router.API, router.Secured)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port)),
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://localhost:%d", config.Server.Port)
		logger.InfoTag("HTTP", "字幕接口入口: http://localhost:%d/openapi/v1/asr/srt", config.Server.Port)
		logger.InfoTag("HTTP", "在线文档入口: http://localhost:%d/docs", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

// waitForShutdown 等待系统信号或服务异常退出，随后取消所有服务并等待其结束
func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.InfoTag(tag, "收到系统信号 %v，正在进行资源清理", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.WarnTag(tag, "服务异常退出，正在进行资源清理")
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(tag, "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag(tag, "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag(tag, "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}
