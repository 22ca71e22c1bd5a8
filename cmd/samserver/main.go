package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getcharzp/go-sam/cache"
	"github.com/getcharzp/go-sam/config"
	"github.com/getcharzp/go-sam/segment"
	"github.com/getcharzp/go-sam/server"
	"github.com/getcharzp/go-sam/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	// 加载配置
	cfg := config.New(*configPath)

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	utils.Logger.Info("starting sam server",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		utils.Logger.Error("server exited", zap.Error(err))
		utils.Sync()
		os.Exit(1)
	}
	utils.Sync()
}

// run 启动服务, ctx 取消后优雅退出并释放模型与缓存
func run(ctx context.Context, cfg *config.Config) error {
	// 初始化模型
	manager := segment.NewManager(cfg.Model.Segment(), segment.WithLogger(utils.Logger))
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize sam sessions: %w", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			utils.Logger.Warn("close sam sessions failed", zap.Error(err))
		}
	}()

	// 特征缓存, Redis 不可用时使用进程内缓存
	var store cache.Store = cache.NewMemory(cfg.Upload.MemoryCache)
	if cfg.Redis.Enabled {
		rs := cache.NewRedis(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.TTL)
		if err := rs.Ping(ctx); err != nil {
			utils.Logger.Warn("redis connection failed, using memory cache", zap.Error(err))
			_ = rs.Close()
		} else {
			utils.Logger.Info("redis connected successfully")
			store = rs
		}
	}
	defer func() { _ = store.Close() }()

	gin.SetMode(cfg.Server.Mode)
	handler := server.NewHandler(manager, store, cfg.Upload.MaxSize, utils.Logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	utils.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
