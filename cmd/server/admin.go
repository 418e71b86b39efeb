package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/mindmesh-backend/internal/config"
	"github.com/AnshRaj112/mindmesh-backend/internal/database"
	"github.com/AnshRaj112/mindmesh-backend/internal/middleware"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/logging"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes used by live and one-shot queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.Setup(cfg.IsProduction())

		if err := database.Connect(cfg.MongoURI); err != nil {
			return fmt.Errorf("connect MongoDB: %w", err)
		}
		defer database.Disconnect()

		indexes := services.Indexes()
		if err := store.NewMongoStore(database.DB).EnsureIndexes(cmd.Context(), indexes); err != nil {
			return err
		}
		for _, idx := range indexes {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", idx.Collection, idx.Name)
		}
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock-ip [ip]",
	Short: "Lift a rate-limit block from a client IP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.Setup(cfg.IsProduction())

		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			return fmt.Errorf("connect Redis: %w", err)
		}
		defer database.DisconnectRedis()

		ip := args[0]
		limiter := middleware.NewRedisRateLimiter(database.RedisClient)
		blocked, err := limiter.IsBlocked(cmd.Context(), ip)
		if err != nil {
			return err
		}
		if !blocked {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not blocked\n", ip)
			return nil
		}
		if err := limiter.Unblock(cmd.Context(), ip); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s unblocked\n", ip)
		return nil
	},
}
