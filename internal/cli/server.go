package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/infra/memory"
	pgbank "quiz-room-service/internal/infra/postgres"
	redisstore "quiz-room-service/internal/infra/redis"
	"quiz-room-service/internal/logging"
	"quiz-room-service/internal/questions"
	transport "quiz-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
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
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured (auth.jwtSecret or JWT_SECRET)")
	}

	log := logging.New(cfg.Server.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var rooms app.RoomRepository = memory.NewRoomStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rooms = redisstore.NewRoomStore(client, config.TTLDuration(cfg.Redis.RoomTTL, 24*time.Hour))
		log.Infow("using redis room store", "addr", cfg.Redis.Addr)
	} else {
		log.Infow("using in-memory room store")
	}

	var bank questions.BankProvider = questions.NewStaticBank(questions.DefaultBank())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		bank = questions.NewCachedBank(pgbank.NewBankLoader(pool), config.TTLDuration(cfg.Bank.TTL, 10*time.Minute))
		log.Infow("using postgres question bank")
	}
	fallback := questions.NewFallbackSource(bank)

	var primary app.QuestionSource
	if cfg.AI.URL != "" && cfg.AI.APIKey != "" {
		primary = questions.NewAISource(questions.AIConfig{
			URL:     cfg.AI.URL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: config.TTLDuration(cfg.AI.Timeout, 30*time.Second),
		})
		log.Infow("ai question source enabled", "model", cfg.AI.Model)
	}

	hub := transport.NewHub(log)
	service := app.NewRoomService(rooms, primary, fallback, hub, log)
	roomHandler := transport.NewRoomHandler(service, log)
	wsHandler := transport.NewWSHandler(service, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	roomHandler.Register(mux, cfg.Auth.JWTSecret)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting quiz room service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Infow("shutting down server")
	case <-ctx.Done():
		log.Infow("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
