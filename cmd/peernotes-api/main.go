package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peernotes/peernotes/internal/config"
	"github.com/peernotes/peernotes/internal/database"
	"github.com/peernotes/peernotes/internal/logging"
	"github.com/peernotes/peernotes/internal/metrics"
	"github.com/peernotes/peernotes/internal/moderation"
	"github.com/peernotes/peernotes/internal/notes"
	"github.com/peernotes/peernotes/internal/ratelimit"
	"github.com/peernotes/peernotes/internal/seed"
	"github.com/peernotes/peernotes/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "peernotes-api",
		Short: "PeerNotes backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newMigrateCommand(), newSeedCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres, none)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("database-dsn", "", "PostgreSQL connection string")
	flags.Bool("database-tls", defaults.GetBool("database.tls"), "Require TLS for PostgreSQL connections")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("moderation-model", defaults.GetString("moderation.model"), "Gemini model used for moderation")
	flags.Float64("moderation-temperature", defaults.GetFloat64("moderation.temperature"), "Moderation sampling temperature")
	flags.StringSlice("cors-allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Allowed CORS origins")
	flags.String("ratelimit-redis-address", "", "Redis address for rate limiting (empty disables)")
	flags.Int("ratelimit-requests-per-minute", defaults.GetInt("ratelimit.requests_per_minute"), "Requests per minute per client on cost-bearing endpoints")
	flags.Bool("metrics-enabled", defaults.GetBool("metrics.enabled"), "Expose Prometheus metrics on /metrics")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "database.tls", "database-tls")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "moderation.model", "moderation-model")
	bindFlag(cmd, "moderation.temperature", "moderation-temperature")
	bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
	bindFlag(cmd, "ratelimit.redis_address", "ratelimit-redis-address")
	bindFlag(cmd, "ratelimit.requests_per_minute", "ratelimit-requests-per-minute")
	bindFlag(cmd, "metrics.enabled", "metrics-enabled")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// environment is the shared setup of every subcommand.
type environment struct {
	config config.AppConfig
	logger *zap.Logger
	db     *gorm.DB
}

func newEnvironment() (*environment, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
		TLS:    appConfig.DatabaseTLS,
	}, logger)
	if err != nil && !errors.Is(err, database.ErrNotConfigured) {
		return nil, err
	}
	if db == nil {
		logger.Warn("no database configured; note endpoints will answer 501")
	}

	return &environment{config: appConfig, logger: logger, db: db}, nil
}

func (e *environment) close() {
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = e.logger.Sync()
}

func (e *environment) notesService() *notes.Service {
	return notes.NewService(notes.ServiceConfig{
		Database: e.db,
		Clock:    time.Now,
		Logger:   e.logger,
	})
}

func runServer(ctx context.Context) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.close()
	appConfig := env.config
	logger := env.logger

	var (
		recorder *metrics.Recorder
		gatherer prometheus.Gatherer
	)
	if appConfig.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err = metrics.New(registry)
		if err != nil {
			return err
		}
		gatherer = registry
	}

	var generator moderation.Generator
	if appConfig.ModerationAPIKey != "" {
		gemini, err := moderation.NewGeminiGenerator(ctx, moderation.GeminiConfig{
			APIKey:      appConfig.ModerationAPIKey,
			Model:       appConfig.ModerationModel,
			Temperature: appConfig.ModerationTemperature,
		})
		if err != nil {
			return err
		}
		generator = gemini
	} else {
		logger.Warn("moderation api key not set; all content will be accepted")
	}
	gateway := moderation.NewGateway(moderation.GatewayConfig{
		Generator: generator,
		Logger:    logger,
		Metrics:   recorder,
	})

	deps := server.Dependencies{
		NotesService:   env.notesService(),
		Moderator:      gateway,
		Metrics:        recorder,
		Gatherer:       gatherer,
		Catalog:        notes.DefaultCatalog(),
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		Logger:         logger,
	}

	if appConfig.RateLimitEnabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RateLimitRedisAddress})
		defer redisClient.Close()
		limiter, err := ratelimit.NewLimiter(ratelimit.Config{
			Client: redisClient,
			Limit:  appConfig.RequestsPerMinute,
			Window: time.Minute,
		})
		if err != nil {
			return err
		}
		deps.Limiter = limiter
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.close()
			if env.db == nil {
				return database.ErrNotConfigured
			}
			env.logger.Info("database schema is up to date", zap.String("driver", env.config.DatabaseDriver))
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var (
		count    int
		seedFlag int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated demo notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.close()
			if env.db == nil {
				return database.ErrNotConfigured
			}
			if seedFlag == 0 {
				seedFlag = time.Now().UnixNano()
			}
			generator := seed.NewGenerator(seedFlag, notes.DefaultCatalog())
			_, err = seed.Run(cmd.Context(), env.notesService(), generator, count, env.logger)
			return err
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "Number of notes to insert")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Random seed (0 picks one from the clock)")
	return cmd
}
