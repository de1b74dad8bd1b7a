package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/prestago/loans-api/api/swagger"
	"github.com/prestago/loans-api/internal/handler"
	"github.com/prestago/loans-api/internal/middleware"
	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/service"
	"github.com/prestago/loans-api/internal/store"
	"github.com/prestago/loans-api/internal/upstream"
	"github.com/prestago/loans-api/pkg/cache"
	"github.com/prestago/loans-api/pkg/config"
	"github.com/prestago/loans-api/pkg/jobs"
	"github.com/prestago/loans-api/pkg/logger"
	corsmiddleware "github.com/prestago/loans-api/pkg/middleware/cors"
	reqidmiddleware "github.com/prestago/loans-api/pkg/middleware/requestid"
)

// @title Prestago Loans API
// @version 1.0.0
// @description Gateway for the institutional equipment and space loan program
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
		} else {
			cacheRepo = store.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	backend := upstream.NewClient(cfg.Upstream, logr)
	requestStore := store.New(logr)
	coordinator := service.NewCoordinator(requestStore, backend, cfg.Upstream.Timeout, metrics, logr)
	sweeper := service.NewSweeper(requestStore, coordinator, metrics, logr)
	engine := service.NewFilterEngine(cfg.Loans.PageSize)
	requestSvc := service.NewRequestService(backend, requestStore, engine, coordinator, sweeper, cacheSvc, metrics, logr)
	authSvc := service.NewAuthService(cfg.JWT)

	requestHandler := handler.NewRequestHandler(requestSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/requests", requestHandler.List)
		api.POST("/requests", middleware.RequireRoles(models.RoleInstructor), requestHandler.Create)
		api.GET("/requests/export", middleware.RequireRoles(models.RoleTechnician, models.RoleAdmin), requestHandler.Export)
		api.POST("/requests/sweep", middleware.RequireRoles(models.RoleTechnician, models.RoleAdmin), requestHandler.Sweep)
		api.GET("/requests/:id", requestHandler.Get)
		api.POST("/requests/:id/transition", requestHandler.Transition)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweepQueue := jobs.NewQueue("sweeps", func(ctx context.Context, _ jobs.Job) error {
			_, err := sweeper.Sweep(ctx, time.Now())
			return err
		}, jobs.QueueConfig{
			Workers:    cfg.Sweep.Workers,
			MaxRetries: cfg.Sweep.MaxRetries,
			Logger:     logr,
		})
		sweepQueue.Start(ctx)
		defer sweepQueue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Sweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := requestSvc.Refresh(ctx); err != nil {
						logr.Warn("periodic refresh failed", zap.Error(err))
						continue
					}
					if err := sweepQueue.Enqueue(jobs.Job{Type: "sweep"}); err != nil {
						logr.Warn("failed to enqueue sweep", zap.Error(err))
					}
				}
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
