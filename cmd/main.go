package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/claim-check-system/api"
	"github.com/fyerfyer/claim-check-system/api/handler"
	"github.com/fyerfyer/claim-check-system/api/middleware"
	appconfig "github.com/fyerfyer/claim-check-system/config"
	"github.com/fyerfyer/claim-check-system/internal/database"
	"github.com/fyerfyer/claim-check-system/internal/evidence"
	"github.com/fyerfyer/claim-check-system/internal/repository"
	"github.com/fyerfyer/claim-check-system/internal/services"
	"github.com/fyerfyer/claim-check-system/pkg/storage"
	"github.com/fyerfyer/claim-check-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// 解析命令行参数
	var (
		configFile = flag.String("config", "", "Path to config file")
		mode       = flag.String("mode", "release", "Run mode (debug/release)")
		workerOnly = flag.Bool("worker", false, "Run as task worker only")
	)
	flag.Parse()

	// 加载.env文件（如果存在）
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env file")
	}

	// 加载配置
	cfg, err := appconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 设置Gin模式
	gin.SetMode(*mode)

	// 初始化日志
	logger := setupLogger(cfg.Log)
	logger.Info("Starting claim check system...")

	// 初始化数据库
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建证据检索器
	retriever := setupRetriever(cfg.Evidence, logger)

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = taskqueue.NewQueue(cfg.Queue.Type, &taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
			RetryDelay:    time.Duration(cfg.Queue.RetryDelay) * time.Second,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 创建校验服务
	verifyOptions := []services.VerifyOption{
		services.WithRunRepository(repository.NewRunRepository()),
		services.WithOutputDir(cfg.Output.Dir),
		services.WithSnippetBaseURL(cfg.Output.BaseURL),
		services.WithWorkers(cfg.Pipeline.Workers),
		services.WithExcerptLimit(cfg.Pipeline.ExcerptLimit),
		services.WithLogger(logger),
	}
	if queue != nil {
		verifyOptions = append(verifyOptions, services.WithTaskQueue(queue))
		logger.Info("Document validation will use async task queue")
	}
	verifyService := services.NewVerifyService(fileStorage, retriever, verifyOptions...)

	// 启动任务工作者（如果启用队列）
	var worker taskqueue.Worker
	if queue != nil {
		redisQueue, ok := queue.(*taskqueue.RedisQueue)
		if !ok {
			logger.Fatalf("Unsupported queue type for worker: %s", cfg.Queue.Type)
		}
		worker = taskqueue.NewRedisWorker(redisQueue, nil)
		worker.RegisterHandler(taskqueue.TaskValidateDocument,
			services.NewValidateTaskHandler(verifyService, logger))
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task worker: %v", err)
		}
		defer worker.Stop()
		logger.Info("Task worker started")
	}

	// 纯工作者模式：不启动HTTP服务，等待终止信号
	if *workerOnly {
		if worker == nil {
			logger.Fatal("Worker mode requires queue.enable=true")
		}
		waitForShutdown(logger)
		return
	}

	// 初始化API处理器并设置路由
	verifyHandler := handler.NewVerifyHandler(verifyService, fileStorage, cfg.Output.BaseURL)
	taskHandler := handler.NewTaskHandler(verifyService)
	runHandler := handler.NewRunHandler(verifyService)
	router := api.SetupRouter(verifyHandler, taskHandler, runHandler, cfg.Output.Dir)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // 同步校验请求可能耗时较长
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	waitForShutdown(logger)

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// waitForShutdown 阻塞等待终止信号
func waitForShutdown(logger *logrus.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
}

// setupLogger 设置日志系统
// 配置了日志文件时使用lumberjack做滚动切割
func setupLogger(cfg appconfig.LogConfig) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.File != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return logger
}

// setupStorage 设置文件存储服务
func setupStorage(cfg appconfig.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	case "local", "":
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Path,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupRetriever 设置证据检索器
func setupRetriever(cfg appconfig.EvidenceConfig, logger *logrus.Logger) evidence.Retriever {
	opts := []evidence.Option{
		evidence.WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		evidence.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		evidence.WithRateLimit(cfg.RatePerSecond),
	}
	if cfg.PubMedEndpoint != "" {
		opts = append(opts, evidence.WithPubMedEndpoint(cfg.PubMedEndpoint))
	}
	if cfg.CrossrefEndpoint != "" {
		opts = append(opts, evidence.WithCrossrefEndpoint(cfg.CrossrefEndpoint))
	}
	if cfg.SearchEndpoint != "" {
		opts = append(opts, evidence.WithSearchEndpoint(cfg.SearchEndpoint))
	}
	return evidence.NewHTTPRetriever(logger, opts...)
}
