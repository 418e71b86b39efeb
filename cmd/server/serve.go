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

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/mindmesh-backend/internal/config"
	"github.com/AnshRaj112/mindmesh-backend/internal/database"
	"github.com/AnshRaj112/mindmesh-backend/internal/handlers"
	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
	"github.com/AnshRaj112/mindmesh-backend/internal/realtime"
	"github.com/AnshRaj112/mindmesh-backend/internal/routes"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logging.Setup(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return fmt.Errorf("connect PostgreSQL: %w", err)
	}
	defer database.DisconnectPostgres()

	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		return fmt.Errorf("connect Redis: %w", err)
	}
	defer database.DisconnectRedis()

	if err := database.Connect(cfg.MongoURI); err != nil {
		return fmt.Errorf("connect MongoDB: %w", err)
	}
	defer database.Disconnect()

	mongoStore := store.NewMongoStore(database.DB)
	if err := mongoStore.EnsureIndexes(ctx, services.Indexes()); err != nil {
		slog.Warn("failed to ensure MongoDB indexes", "err", err)
	}

	feed := realtime.NewRedisFeed(database.RedisClient)
	feed.Start(ctx)
	st := store.NewNotifying(mongoStore, feed)
	cache := realtime.NewRedisSnapshotCache(database.RedisClient, cfg.SnapshotCacheTTL)

	var uploader services.Uploader
	if cfg.UploadsEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			slog.Warn("image uploads disabled", "err", err)
		} else {
			uploader = cld
		}
	} else {
		slog.Warn("Cloudinary credentials not set; image uploads disabled")
	}

	groups := services.NewGroupService(st)
	notifications := services.NewNotificationService(st, cfg.NotificationLimit)
	profiles := services.NewProfileService(st, uploader)
	auth := services.NewAuthService(
		services.NewPostgresCredentials(database.PostgresDB),
		services.NewRedisSessions(database.RedisClient),
		profiles,
	)

	h := handlers.New(handlers.Deps{
		Auth:           auth,
		Groups:         groups,
		Chat:           services.NewChatService(st, groups, notifications, cfg.MessageLimit),
		Notifications:  notifications,
		Ideas:          services.NewIdeaService(st, notifications),
		Notes:          services.NewNoteService(st),
		Moodboards:     services.NewMoodboardService(st, uploader),
		Profiles:       profiles,
		Store:          st,
		Feed:           feed,
		Cache:          cache,
		Location:       cfg.Location(),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	var extra []func(http.Handler) http.Handler
	if cfg.IsProduction() {
		extra = middleware.ProductionSecurity(cfg.AllowedHost)
		slog.Info("production security enabled", "host", cfg.AllowedHost)
	} else {
		extra = append(extra, middleware.NewRedisRateLimiter(database.RedisClient).Middleware)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: routes.NewRouter(h, routes.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Resolver:       auth,
			Extra:          extra,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("MindMesh backend listening", "addr", srv.Addr, "env", cfg.Environment, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
