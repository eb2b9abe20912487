package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"debate_arena/internal/api"
	"debate_arena/internal/logging"
	"debate_arena/internal/metrics"
	"debate_arena/internal/middleware"
	"debate_arena/internal/repository"
	"debate_arena/internal/service"
	"debate_arena/internal/storage"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("DEBATE_CONFIG"), "Path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	// 載入應用程式配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化資料庫連接
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}

	tokens, err := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db)
	services, err := service.NewServices(service.Deps{
		Repos:   repos,
		Config:  cfg.Debate,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: metrics.New(registry),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// 設置 Gin 路由
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	api.SetupRoutes(r, services, tokens, registry)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	// HTTP 服務與投票截止掃描同時執行，任一方結束就一起停止
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return services.Sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
