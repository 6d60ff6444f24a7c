package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/casewire/casewire/internal/agents"
	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/config"
	"github.com/casewire/casewire/internal/ingest"
	"github.com/casewire/casewire/internal/printer"
	"github.com/casewire/casewire/internal/scheduler"
	"github.com/casewire/casewire/pkg/graph"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the casewire engine",
	Long: `Starts the blackboard engine: the in-memory graph store, the update
broadcaster, the scheduler dispatch loop, the report API, and the health
endpoint. When redis_url is configured, every graph update is also published
to Redis for live viewers.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultPath, "path to casewire.yml")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load configuration; environment variables override the file
	cfg, err := loadServeConfig()
	if err != nil {
		return printer.Error(
			"Configuration error",
			err.Error(),
			[]string{"Create a casewire.yml, or set CASEWIRE_INSTANCE to run with defaults"},
		)
	}

	printer.Info("Starting casewire instance '%s'\n", cfg.Instance)

	// 2. Build the core: store, scheduler, broadcaster
	store := graph.NewStore()
	sched := scheduler.New()
	bus := broadcast.New(sched)

	// 3. Register the analysis agents
	if err := agents.RegisterAll(sched, agents.Deps{Store: store, Bus: bus}, cfg.Cooldowns()); err != nil {
		return printer.Error("Agent registration failed", err.Error(), nil)
	}
	printer.Success("Registered %d knowledge sources\n", sched.SourceCount())

	// 4. Attach the Redis live sink when configured
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return printer.Error("Invalid redis_url", err.Error(), nil)
		}
		sink, err := broadcast.NewRedisSink(opts, cfg.Instance)
		if err != nil {
			return printer.Error("Redis sink setup failed", err.Error(), nil)
		}
		defer sink.Close()
		if err := sink.Ping(ctx); err != nil {
			return printer.Error(
				"Redis unreachable",
				err.Error(),
				[]string{"Start a local Redis", "Clear redis_url to run without the live sink"},
			)
		}
		bus.Subscribe(sink)
		printer.Success("Live updates publishing to %s\n", broadcast.GraphUpdatesChannel(cfg.Instance))
	}

	// 5. Wire the ingestion API
	svc := ingest.NewService(store, bus, ingest.NewRegistry())
	api := ingest.NewAPI(svc, store)
	apiServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// 6. Start the health endpoint
	health := scheduler.NewHealthServer(sched, cfg.HealthListen)
	if err := health.Start(); err != nil {
		return printer.Error("Health server failed", err.Error(), nil)
	}

	// 7. Run the loops until a signal arrives
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		return bus.Run(ctx)
	})
	g.Go(func() error {
		printer.Info("Report API listening on %s\n", cfg.Listen)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		printer.Warning("Shutting down\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = health.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return printer.Error("Engine stopped", err.Error(), nil)
	}
	printer.Success("Stopped cleanly\n")
	return nil
}

// loadServeConfig reads casewire.yml and applies environment overrides.
// When the file is absent but CASEWIRE_INSTANCE is set, defaults are used.
func loadServeConfig() (*config.Config, error) {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		if instance := os.Getenv("CASEWIRE_INSTANCE"); instance != "" && errors.Is(err, os.ErrNotExist) {
			cfg = config.Default(instance)
		} else {
			return nil, err
		}
	}
	if instance := os.Getenv("CASEWIRE_INSTANCE"); instance != "" {
		cfg.Instance = instance
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
