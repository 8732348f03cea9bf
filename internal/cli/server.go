package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/config"
	"ctf-scoreboard-service/internal/events"
	"ctf-scoreboard-service/internal/infra/memory"
	"ctf-scoreboard-service/internal/infra/postgres"
	redcache "ctf-scoreboard-service/internal/infra/redis"
	"ctf-scoreboard-service/internal/metrics"
	"ctf-scoreboard-service/internal/scoring"
	transport "ctf-scoreboard-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scoreboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := postgres.NewDB(cfg.Postgres.URL)
		defer db.Close()
		store = postgres.NewStore(db)
	} else {
		// Demo mode: seeded in-memory competition.
		memStore := memory.NewStore()
		memStore.Seed(memory.SampleData())
		store = memStore
		logger.Warn("postgres not configured, using in-memory store with sample data")
	}

	var questions transport.QuestionSource = store
	var invalidator app.QuestionInvalidator
	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := redcache.NewQuestionCache(redisClient, store, config.TTLDuration(cfg.Questions.TTL, 10*time.Minute))
		questions = cache
		invalidator = cache
	}

	m := metrics.New()
	bus := events.NewBus(logger)
	defer bus.Close()

	policy := scoring.NewMultiplicative(cfg.Scoring.Factor, cfg.Scoring.Floor)
	ledger := app.NewLedger(store, policy, bus, m, logger)
	ranking := app.NewRankingIndex(store)

	projectorCtx, stopProjector := context.WithCancel(ctx)
	defer stopProjector()
	projector := app.NewProjector(bus, ranking, invalidator, logger)
	if err := projector.Start(projectorCtx); err != nil {
		return err
	}

	wsHandler := transport.NewWSHandler(ledger, ranking, store, questions, bus, m, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/leaderboard", transport.NewLeaderboardHandler(ranking, logger))
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting scoreboard service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
