package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/wisepick/internal/config"
	"github.com/user/wisepick/internal/handler"
	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/repository"
	"github.com/user/wisepick/internal/router"
	"github.com/user/wisepick/internal/service"
	"github.com/user/wisepick/internal/utils"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置，缺少必要配置时直接退出
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Env != "production"); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.WithModule("main")
	if envErr != nil {
		log.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 初始化数据库
	db, err := repository.InitDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		log.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 初始化仓库
	repos := repository.NewRepositories(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 大模型与外部目录
	completer, err := utils.NewCompleter(ctx, utils.CompleterConfig{
		Provider:      cfg.LLMProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaHost:    cfg.OllamaHost,
		Options: utils.CompleterOptions{
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     cfg.LLMTimeout,
		},
	})
	if err != nil {
		log.Fatal("初始化大模型客户端失败", zap.Error(err))
	}

	httpClient := utils.NewHTTPClient(cfg.CatalogTimeout)
	enricher := service.NewCatalogEnricher(
		service.NewGoogleBooksClient(cfg.GoogleAPIKey, httpClient),
		service.NewTMDBClient(cfg.TMDBAPIKey, cfg.TMDBAccessToken, httpClient),
		service.NewYouTubeClient(cfg.YouTubeAPIKey, httpClient),
		cfg.EnrichConcurrency,
		cfg.CatalogTimeout,
	)
	generator := service.NewSuggestionGenerator(completer, cfg.RateLimitPerMinute)
	recommend := service.NewRecommendService(generator, enricher, repos.QueryCache, service.RecommendConfig{
		ResultCount: cfg.DefaultResultCount,
		Cacheable: func(kind model.ContentKind) bool {
			return cfg.CacheableKind(kind.String())
		},
	})

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(repos.QueryCache, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CleanupInterval)
	cleanupSvc.Start(ctx)

	// 注册路由
	h := handler.NewHandler(cfg, recommend, repos)
	r := router.New(cfg, h)

	// 写超时需覆盖一次完整的生成 + 补全
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 2*cfg.CatalogTimeout + 5*time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Info("服务器启动", zap.String("addr", "http://localhost:"+cfg.Port),
			zap.String("llm_provider", cfg.LLMProvider), zap.String("llm_model", cfg.LLMModel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	<-ctx.Done()
	log.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("服务器强制关闭", zap.Error(err))
	}

	log.Info("服务器已退出")
}
