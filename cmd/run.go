package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/config"
	"github.com/vmops/snapfleet/internal/executor"
	"github.com/vmops/snapfleet/internal/handlers"
	"github.com/vmops/snapfleet/internal/server"
	"github.com/vmops/snapfleet/internal/services"
	"github.com/vmops/snapfleet/internal/sessions"
	"github.com/vmops/snapfleet/internal/store"
	"github.com/vmops/snapfleet/internal/store/migrations"
	"github.com/vmops/snapfleet/pkg/credentials"
)

const envPrefix = "SNAPFLEET"

const shutdownTimeout = 10 * time.Second

func Execute() {
	cfg := config.NewConfigurationWithOptionsAndDefaults()
	cmd := NewRunCommand(cfg)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRunCommand builds the root command. Every flag is bound directly
// to a configuration field; environment variables with the SNAPFLEET
// prefix fill in flags that were not set on the command line.
func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapfleet",
		Short:         "VM snapshot manager for vSphere fleets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			viper.AutomaticEnv()
			viper.SetEnvPrefix(envPrefix)
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			cobraflags.PresetRequiredFlags(envPrefix, make(map[*pflag.Flag]bool), cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfiguration(cfg); err != nil {
				return err
			}
			return runManager(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Server.HTTPPort, "server-http-port", cfg.Server.HTTPPort, "port of the HTTP API server")
	flags.StringVar(&cfg.Server.StaticsFolder, "server-statics-folder", cfg.Server.StaticsFolder, "folder with the web console statics")
	flags.StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "server mode, one of prod or dev")
	flags.StringVar(&cfg.Manager.DBPath, "db-path", cfg.Manager.DBPath, "path of the sqlite database")
	flags.StringVar(&cfg.Manager.DataFolder, "data-folder", cfg.Manager.DataFolder, "folder holding the credential store")
	flags.DurationVar(&cfg.Manager.HealthInterval, "health-interval", cfg.Manager.HealthInterval, "interval between session health sweeps")
	flags.IntVar(&cfg.Manager.MaxRetries, "max-retries", cfg.Manager.MaxRetries, "dial attempts per reconnection burst")
	flags.DurationVar(&cfg.Manager.BackoffBase, "backoff-base", cfg.Manager.BackoffBase, "base delay between dial attempts")

	return cmd
}

func validateConfiguration(cfg *config.Configuration) error {
	switch cfg.Server.ServerMode {
	case server.ProductionServer:
		if cfg.Server.StaticsFolder == "" {
			return errors.New("statics folder must be set in prod server mode")
		}
	case server.DevServer:
	default:
		return fmt.Errorf("invalid server mode: %s", cfg.Server.ServerMode)
	}

	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http-port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Manager.HealthInterval <= 0 {
		return fmt.Errorf("invalid health-interval: %s", cfg.Manager.HealthInterval)
	}
	if cfg.Manager.MaxRetries < 1 {
		return fmt.Errorf("invalid max-retries: %d", cfg.Manager.MaxRetries)
	}
	if cfg.Manager.BackoffBase <= 0 {
		return fmt.Errorf("invalid backoff-base: %s", cfg.Manager.BackoffBase)
	}

	return cfg.Validate()
}

func runManager(ctx context.Context, cfg *config.Configuration) error {
	logger, err := newLogger(cfg.Server.ServerMode)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	log := zap.S().Named("main")

	db, err := store.NewDB(cfg.Manager.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	st := store.NewStore(db)
	defer st.Close()

	creds := credentials.NewDiskStore(cfg.Manager.DataFolder)
	pool := sessions.NewPool(creds)

	endpoints, err := st.Endpoints().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load endpoints: %w", err)
	}
	for _, endpoint := range endpoints {
		pool.Register(endpoint)
	}
	log.Infow("endpoints loaded", "count", len(endpoints))

	supervisor := sessions.NewSupervisor(pool, sessions.SupervisorConfig{
		Interval:    cfg.Manager.HealthInterval,
		MaxRetries:  cfg.Manager.MaxRetries,
		BackoffBase: cfg.Manager.BackoffBase,
	})

	inventory := services.NewInventoryService(pool)
	status := services.NewStatusService(pool)
	runs := services.NewRunService(executor.NewExecutor(pool, inventory), inventory)

	handler := handlers.New(pool, creds, st.Endpoints(), st.Settings(), status, inventory, runs)
	srv, err := server.NewServer(cfg, handler.Register)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go supervisor.Run(ctx)
	go status.Watch(ctx, supervisor.Events())

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Stop(shutdownCtx)
	}()

	log.Infow("server starting", "port", cfg.Server.HTTPPort, "mode", cfg.Server.ServerMode)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(serverMode string) (*zap.Logger, error) {
	if serverMode == server.ProductionServer {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
