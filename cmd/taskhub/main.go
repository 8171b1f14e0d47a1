// @title						TaskHub API
// @version					1.0
// @description				Multi-user task tracker with audit history and realtime notifications.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtlprog/taskhub/internal/cache"
	"github.com/mtlprog/taskhub/internal/config"
	"github.com/mtlprog/taskhub/internal/database"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/handler"
	"github.com/mtlprog/taskhub/internal/logger"
	"github.com/mtlprog/taskhub/internal/notify"
	"github.com/mtlprog/taskhub/internal/realtime"
	"github.com/mtlprog/taskhub/internal/repository"
	"github.com/mtlprog/taskhub/internal/service"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "taskhub",
		Usage: "Multi-user task tracker with realtime notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "cache-backend",
				Value:   string(config.DefaultCacheBackend),
				Usage:   "Cache backend (redis, memory, none)",
				EnvVars: []string{"CACHE_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Value:   config.DefaultRedisURL,
				Usage:   "Redis URL used when cache-backend is redis",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "allowed-origin",
				Value:   config.DefaultAllowedOrigin,
				Usage:   `Origin allowed to open websocket sessions ("*" for any, empty for same-origin)`,
				EnvVars: []string{"ALLOWED_ORIGIN"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Action: runServe,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Print migration status instead of applying",
					},
				},
				Action: runMigrate,
			},
			{
				Name:  "user",
				Usage: "Manage users",
				Subcommands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Create a user and print its API token",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "email", Required: true, Usage: "User email"},
							&cli.StringFlag{Name: "name", Required: true, Usage: "Display name"},
							&cli.StringFlag{Name: "role", Value: string(domain.RoleUser), Usage: "Role (admin, user)"},
						},
						Action: runCreateUser,
					},
				},
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	backend, err := config.ParseCacheBackend(c.String("cache-backend"))
	if err != nil {
		return err
	}

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, closeCache := openCache(ctx, backend, c.String("redis-url"))
	defer closeCache()

	hub := notify.NewHub()

	userService := service.NewUserService(repository.NewUserRepository(db.Pool()), store)
	taskService := service.NewTaskService(
		repository.NewTaskRepository(db.Pool()),
		userService,
		repository.NewAuditEventRepository(db.Pool()),
		store,
		hub,
	)

	ws := realtime.NewServer(hub, userService, c.String("allowed-origin"))
	h := handler.New(db, taskService, userService, ws)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port, "cache_backend", backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server", "sessions", hub.Sessions())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Hijacked websocket connections are not closed by http.Server.Shutdown.
	if err := ws.Shutdown(shutdownCtx); err != nil {
		slog.Warn("websocket sessions did not close in time", "sessions", hub.Sessions(), "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// openCache builds the configured cache. An unreachable Redis degrades to the
// in-process cache instead of failing startup.
func openCache(ctx context.Context, backend config.CacheBackend, redisURL string) (cache.Cache, func()) {
	switch backend {
	case config.CacheNone:
		return cache.Bypass{}, func() {}
	case config.CacheMemory:
		return cache.NewMemory(), func() {}
	}

	r, err := cache.ConnectRedis(ctx, redisURL, config.DefaultRedisConnectAttempts, config.DefaultRedisConnectDelay)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "error", err)
		return cache.NewMemory(), func() {}
	}

	return r, func() {
		if err := r.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if c.Bool("status") {
		return database.MigrationStatus(ctx, db.Pool())
	}

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runCreateUser(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db.Pool()), cache.Bypass{})
	user, err := users.Create(ctx, service.CreateUserInput{
		Email: c.String("email"),
		Name:  c.String("name"),
		Role:  domain.Role(c.String("role")),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "role", user.Role)
	fmt.Fprintln(c.App.Writer, user.Token)
	return nil
}
