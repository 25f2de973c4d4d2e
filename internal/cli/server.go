package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/bot"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/catalog"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/config"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/gateway/telebot"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/memory"
	pgrepo "github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/postgres"
	redisstore "github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/redis"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/leaderboard"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
	transport "github.com/FloatinggOnion/telegram-json-quizbot/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the bot.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz bot",
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
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (telegram.token or BOT_API_KEY)")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8000"
	}

	var quizRepo catalog.QuizRepository = memory.NewQuizRepository()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizRepo = pgrepo.NewQuizRepository(pool)
	}
	cacheTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	cat := catalog.NewService(catalog.NewCachedRepository(quizRepo, cacheTTL))

	var boardStore leaderboard.Store = memory.NewLeaderboardStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		boardStore = redisstore.NewLeaderboardStore(client, "quizbot")
	}
	topN := config.TopN(cfg.Leaderboard.TopN, 5)
	board := leaderboard.NewService(boardStore, topN)

	gw, err := telebot.New(telebot.Config{
		Token:       cfg.Telegram.Token,
		WebhookURL:  cfg.Telegram.WebhookURL,
		Listen:      ":" + finalPort,
		PollTimeout: config.Duration(cfg.Telegram.PollTimeout, 10*time.Second),
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	machine := quiz.NewService(memory.NewSessionStore(), cat, board, gw, quiz.Options{
		QuestionTimeout: config.Duration(cfg.Quiz.QuestionTimeout, 20*time.Second),
		Shuffle:         cfg.Quiz.Shuffle,
		SummaryTopN:     topN,
	})

	dispatcher := bot.NewDispatcher(cat, machine, gw)
	gw.Attach(dispatcher)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(board).ServeWS)

	// webhook mode binds the bot itself to finalPort, so the side endpoints
	// move to the next port up in that mode
	httpPort := finalPort
	if cfg.Telegram.WebhookURL != "" {
		httpPort = nextPort(finalPort)
	}

	server := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting leaderboard endpoints on :%s", httpPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	go func() {
		log.Printf("starting quiz bot")
		gw.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down bot...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down bot...")
	}

	gw.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func nextPort(port string) string {
	var n int
	if _, err := fmt.Sscanf(port, "%d", &n); err != nil {
		return "8001"
	}
	return fmt.Sprintf("%d", n+1)
}
