package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz-api/internal/config"
	"github.com/noah-isme/gema-quiz-api/internal/database"
	"github.com/noah-isme/gema-quiz-api/internal/handler"
	"github.com/noah-isme/gema-quiz-api/internal/logger"
	"github.com/noah-isme/gema-quiz-api/internal/middleware"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
	"github.com/noah-isme/gema-quiz-api/internal/router"
	"github.com/noah-isme/gema-quiz-api/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gema-quiz",
		Short:        "Live classroom quiz scoring service",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), repairCmd())

	// serve is the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("port", "", "HTTP listen port (or GEMA_APP_PORT)")
	cmd.Flags().String("redis", "", "Redis URL for the snapshot cache (or GEMA_REDIS_URL)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			log.Info().Msg("schema migrated")
			return closeDatabase(db)
		},
	}
	addCommonFlags(cmd)
	return cmd
}

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair-rounds",
		Short: "Renumber a course's rounds and re-judge completed rounds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			courseID, err := cmd.Flags().GetUint("course")
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeDatabase(db) }()

			store := repository.NewStore(db)
			validate := validator.New(validator.WithRequiredStructEnabled())
			rounds := service.NewRoundController(store, validate, service.NewActivityService(store, log), nil, log)

			result, err := rounds.RepairRounds(cmd.Context(), courseID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "course %d: %d rounds, %d renumbered, %d re-judged, current round %d\n",
				result.CourseID, result.Rounds, result.Renumbered, result.Rejudged, result.CurrentRound)
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().Uint("course", 0, "Course id to repair")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "", "Database DSN: postgres URL or sqlite path (or GEMA_DATABASE_URL)")
	f.String("log-level", "", "Log level: debug, info, warn, error (or GEMA_LOG_LEVEL)")
	f.String("log-format", "", "Log format: json, console (or GEMA_LOG_FORMAT)")
}

// loadConfig resolves configuration from flags, environment and .env, and builds
// the root logger.
func loadConfig(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	v := viper.New()
	bindings := map[string]string{
		"database.url": "db",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"app.port":     "port",
		"redis.url":    "redis",
	}
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}

	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout), nil
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func closeDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeDatabase(db) }()

	redisClient, err := database.ConnectRedis(cmd.Context(), cfg.RedisURL)
	if err != nil {
		// The snapshot cache is optional; the service runs against the datastore alone.
		log.Warn().Err(err).Msg("redis unavailable, snapshot cache disabled")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, log, db, redisClient)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddress()).Msg("quiz api listening")
		errCh <- app.Listen(cfg.HTTPAddress())
	}()

	return waitForShutdown(cmd.Context(), app, errCh, log)
}

func buildApp(cfg config.Config, log zerolog.Logger, db *gorm.DB, redisClient *redis.Client) *fiber.App {
	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)
	cache := service.NewSnapshotCache(redisClient, cfg.SnapshotCacheTTL, log)

	activityService := service.NewActivityService(store, log)
	aggregationService := service.NewAggregationService(store, log)
	roundController := service.NewRoundController(store, validate, activityService, cache, log)
	gradingService := service.NewGradingService(store, validate, activityService, cache, log)
	queryService := service.NewSessionQueryService(store, aggregationService, cache, log)
	rosterService := service.NewRosterService(store, validate, cache, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &log, AccessLog: cfg.AppEnv == "development"})

	deps := router.Dependencies{
		CourseHandler: handler.NewCourseHandler(roundController, gradingService, queryService, activityService, log),
		RosterHandler: handler.NewRosterHandler(rosterService, log),
		HealthChecks:  map[string]handler.Pinger{},
	}
	if sqlDB, err := db.DB(); err == nil {
		deps.Database = handler.PingFunc(sqlDB.PingContext)
	}
	if redisClient != nil {
		deps.HealthChecks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	router.Register(app, cfg, deps)

	return app
}

func waitForShutdown(parent context.Context, app *fiber.App, errCh <-chan error, log zerolog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "server closed") {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
