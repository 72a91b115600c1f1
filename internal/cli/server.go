package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/config"
	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
	pgloader "quizlive/internal/infra/postgres"
	redisinfra "quizlive/internal/infra/redis"
	"quizlive/internal/pubsub"
	transport "quizlive/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
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
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	roomStore := memory.NewRoomStore()

	var gameStore app.GameStore = memory.NewGameStore()
	if redisClient != nil {
		mirrored := redisinfra.NewGameStore(gameStore, redisClient, redisTTL)
		if restored, err := mirrored.Restore(ctx); err != nil {
			log.Printf("restore mirrored sessions: %v", err)
		} else if restored > 0 {
			log.Printf("restored %d game sessions from redis", restored)
		}
		gameStore = mirrored
	}

	var ledger app.AnswerLedger = memory.NewLedger()
	if redisClient != nil {
		ledger = redisinfra.NewLedger(redisClient, redisTTL)
	}

	var bus interface {
		pubsub.Publisher
		pubsub.Subscriber
	} = pubsub.NewBroker()
	if redisClient != nil {
		bus = pubsub.NewRedisBus(redisClient)
	}

	gameCfg := app.GameConfig{
		QuestionDuration: config.Duration(cfg.Game.QuestionDuration, app.DefaultQuestionDuration),
		FeedbackDelay:    config.Duration(cfg.Game.FeedbackDelay, app.DefaultFeedbackDelay),
	}
	games := app.NewGameService(gameStore, roomStore, ledger, quizRepo, bus, gameCfg)
	defer games.Shutdown()
	rooms := app.NewRoomService(roomStore, quizRepo, games, bus)

	api := transport.NewAPI(rooms, games)
	wsHandler := transport.NewWSHandler(games, bus)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content covering every question type; swap in
// the Postgres loader for real data.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:    "demo",
			Title: "Demo quiz",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Type:   domain.TypeSingleChoice,
					Answers: []domain.Answer{
						{ID: "a1", Text: "3"},
						{ID: "a2", Text: "4", IsCorrect: true},
						{ID: "a3", Text: "5"},
					},
				},
				{
					ID:     "q2",
					Prompt: "Select the prime numbers",
					Type:   domain.TypeMultipleChoice,
					Answers: []domain.Answer{
						{ID: "b1", Text: "2", IsCorrect: true},
						{ID: "b2", Text: "4"},
						{ID: "b3", Text: "7", IsCorrect: true},
					},
				},
				{
					ID:     "q3",
					Prompt: "Find the intruder",
					Type:   domain.TypeFindIntruder,
					Answers: []domain.Answer{
						{ID: "c1", Text: "Apple"},
						{ID: "c2", Text: "Banana"},
						{ID: "c3", Text: "Carrot", IsIntruder: true},
					},
				},
				{
					ID:     "q4",
					Prompt: "Match capitals to countries",
					Type:   domain.TypeMatching,
					Answers: []domain.Answer{
						{ID: "d1", Text: "France", PairID: "p1"},
						{ID: "d2", Text: "Paris", PairID: "p1"},
						{ID: "d3", Text: "Italy", PairID: "p2"},
						{ID: "d4", Text: "Rome", PairID: "p2"},
					},
				},
				{
					ID:     "q5",
					Prompt: "Order from smallest to largest",
					Type:   domain.TypeOrdering,
					Answers: []domain.Answer{
						{ID: "e1", Text: "Ant", OrderIndex: 0},
						{ID: "e2", Text: "Cat", OrderIndex: 1},
						{ID: "e3", Text: "Horse", OrderIndex: 2},
					},
				},
			},
		},
	}
}
