package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbr/taskbot/internal/cache"
	"github.com/bbr/taskbot/internal/controllers"
	"github.com/bbr/taskbot/internal/datasources"
	"github.com/bbr/taskbot/internal/metrics"
	"github.com/bbr/taskbot/internal/models"
	"github.com/bbr/taskbot/internal/ratelimit"
	"github.com/bbr/taskbot/internal/repositories"
	"github.com/bbr/taskbot/internal/services"
	"github.com/bbr/taskbot/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the health/metrics server",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if err := cfg.Validate(); err != nil {
			return err
		}

		app := &models.AppContext{}
		defer app.Close()

		startCtx, cancelStart := context.WithTimeout(c.Context(), startupTimeout)
		defer cancelStart()

		// Initialize Datasources
		app.DB, err = datasources.NewPostgresConnection(startCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("database connection established")

		if cfg.AutoMigrate {
			if err := datasources.RunMigrations(startCtx, app.DB, migrations.FS, logger); err != nil {
				return err
			}
		}

		app.Redis, err = datasources.NewRedisClient(startCtx, cfg.Redis)
		if err != nil {
			return err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr()))

		app.Bot, err = datasources.NewTelegramBot(cfg.TelegramToken, cfg.PollTimeout, logger)
		if err != nil {
			return err
		}
		logger.Info("telegram bot initialized", zap.String("username", app.Bot.Me.Username))

		// Initialize Repositories
		taskRepo := repositories.NewTaskRepository(app.DB)
		userRepo := repositories.NewUserRepository(app.DB)
		taskCache := cache.NewTaskCache(app.Redis, cfg.CacheTTL)
		m := metrics.New()

		// Initialize Services
		userService := services.NewUserService(userRepo)
		taskService := services.NewTaskService(taskRepo, taskCache, m, logger)
		dialogs := services.NewDialogService(taskService, userService, cfg.DialogTTL, logger)

		// Initialize Controllers
		baseCtx, cancelBase := context.WithCancel(context.Background())
		defer cancelBase()

		teleCtrl := controllers.NewTelegramController(
			app.Bot, userService, taskService, dialogs,
			ratelimit.NewUserLimiter(cfg.RateLimit, cfg.RateBurst),
			m, logger, cfg.DefaultLanguage,
		)
		teleCtrl.BaseContext = baseCtx
		teleCtrl.SetupHandlers()

		httpCtrl := controllers.NewHTTPController(m.Handler(), logger,
			controllers.HealthCheck{Name: "postgres", Check: app.DB.PingContext},
			controllers.HealthCheck{Name: "redis", Check: taskCache.Ping},
		)
		srv := &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           httpCtrl.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Start Bot in Goroutine
		go app.Bot.Start()
		logger.Info("telegram bot started")

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("http server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)

		var runErr error
		select {
		case s := <-sig:
			logger.Info("shutting down", zap.String("signal", s.String()))
		case err, ok := <-serverErr:
			if ok {
				runErr = err
				logger.Error("http server failed", zap.Error(err))
			}
		}

		app.Bot.Stop()
		cancelBase()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", zap.Error(err))
		}

		logger.Info("stopped")
		return runErr
	},
}
