package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/api/router"
	"resume-parser-go/internal/config"
	appLogger "resume-parser-go/internal/logger"
	"resume-parser-go/internal/outbox"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"         //nolint:gochecknoglobals
	serviceName = "resume-parser" //nolint:gochecknoglobals
)

func main() {
	var configPath, initConfig string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVar(&initConfig, "init-config", "", "Write a sample config file to the given path and exit")
	pflag.Parse()

	if initConfig != "" {
		if err := config.CreateSampleConfig(initConfig); err != nil {
			glog.Fatalf("生成示例配置失败: %v", err)
		}
		glog.Infof("示例配置已写入 %s", initConfig)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	if err := appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	}); err != nil {
		glog.Fatalf("初始化日志失败: %v", err)
	}
	glog.Infof("配置加载成功, 版本 %s", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = serviceName
		}
		shutdownTracing, err := tracing.InitProvider(ctx, name, cfg.Tracing.Endpoint)
		if err != nil {
			glog.Warnf("初始化链路追踪失败, 继续运行: %v", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				if err := shutdownTracing(sctx); err != nil {
					glog.Errorf("关闭链路追踪失败: %v", err)
				}
			}()
			glog.Infof("链路追踪已启用, 导出至 %s", cfg.Tracing.Endpoint)
		}
	}

	storageManager, err := storage.NewStorage(ctx, cfg, appLogger.Component("storage"))
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	appLogger.Info().
		Bool("mysql", storageManager.MySQL != nil).
		Bool("redis", storageManager.Redis != nil).
		Bool("minio", storageManager.MinIO != nil).
		Bool("rabbitmq", storageManager.RabbitMQ != nil).
		Msg("存储服务初始化成功")

	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(
			storageManager.MySQL.DB(),
			storageManager.RabbitMQ,
			appLogger.Component("outbox"),
			outbox.WithPollingInterval(config.GetDuration(cfg.Outbox.PollInterval, 5*time.Second)),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
		)
		messageRelay.Start(ctx)
		glog.Info("消息中继服务已启动")
	}

	svc, err := buildResumeService(ctx, cfg, storageManager)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化简历服务失败")
	}

	resumeHandler := handler.NewResumeHandler(svc, int64(cfg.Server.MaxUploadMB)<<20, appLogger.Component("api"))

	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize((cfg.Server.MaxUploadMB+1)<<20),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%s)", string(ctx.Method()), string(ctx.Path()),
			ctx.Response.StatusCode(), time.Since(start))
	})

	router.RegisterRoutes(h, resumeHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("服务器关闭失败")
	}
	glog.Info("优雅退出完成")
}

func buildResumeService(ctx context.Context, cfg *config.Config, s *storage.Storage) (*processor.ResumeService, error) {
	logger := appLogger.Component("processor")

	extractor, err := processor.NewTextExtractorFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	refiner, err := processor.NewRefinerFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	if refiner == nil {
		appLogger.Warn().Msg("未配置模型凭证, 仅使用启发式解析")
	}

	components := processor.Components{
		TextExtractor: extractor,
		Assembler:     processor.NewAssemblerFromConfig(cfg, refiner, logger),
		Store:         s.Resumes,
		Files:         s.Files,
	}

	var embeddingCache processor.EmbeddingCache
	if s.Redis != nil {
		components.ScoreCache = s.Redis
		embeddingCache = s.Redis
	}
	components.Embeddings, err = processor.NewEmbeddingProviderFromConfig(cfg, embeddingCache, logger)
	if err != nil {
		return nil, err
	}

	return processor.NewResumeService(components,
		processor.WithParserVersion(cfg.Parser.Version),
		processor.WithServiceLogger(logger),
	)
}
