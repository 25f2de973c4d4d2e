package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/catalog"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/memory"
	infrapg "github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/postgres"
	pgmigrations "github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/postgres/migrations"
	infraredis "github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/redis"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/leaderboard"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	cat := catalog.NewService(catalog.NewCachedRepository(infrapg.NewQuizRepository(pool), 5*time.Minute))
	board := leaderboard.NewService(infraredis.NewLeaderboardStore(redisClient, "quizbot"), 5)
	gw := &fakeGateway{}
	machine := quiz.NewService(memory.NewSessionStore(), cat, board, gw, quiz.Options{
		QuestionTimeout: time.Minute,
	})

	quizID, err := cat.Create(ctx, "math", 100, []domain.Question{
		{
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5"},
			CorrectOption: 1,
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quizID != 1 {
		t.Fatalf("expected first quiz id 1, got %d", quizID)
	}

	if err := machine.Start(ctx, 7, "Alice", quizID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := machine.SubmitAnswer(ctx, 7, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	top, err := board.TopN(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].UserID != 7 || top[0].Score != 1 || top[0].Total != 1 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}
	if top[0].DisplayName != "Alice" {
		t.Fatalf("expected display name Alice, got %q", top[0].DisplayName)
	}

	found := false
	for _, text := range gw.texts() {
		if strings.Contains(text, "Quiz Completed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected completion summary, got %q", gw.texts())
	}
}

func TestCatalogSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	cat := catalog.NewService(infrapg.NewQuizRepository(pool))
	quizID, err := cat.Create(ctx, "capitals", 1, []domain.Question{
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOption: 0},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	pool.Close()

	pool2, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("reconnect pg: %v", err)
	}
	defer pool2.Close()

	got, err := catalog.NewService(infrapg.NewQuizRepository(pool2)).Get(ctx, quizID)
	if err != nil {
		t.Fatalf("get after reconnect: %v", err)
	}
	if got.Name != "capitals" || len(got.Questions) != 1 {
		t.Fatalf("unexpected quiz %+v", got)
	}
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []string
}

func (g *fakeGateway) SendText(_ context.Context, _ int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, text)
	return nil
}

func (g *fakeGateway) SendButtons(_ context.Context, _ int64, text string, _ [][]quiz.Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, text)
	return nil
}

func (g *fakeGateway) SendAnimation(_ context.Context, _ int64, _ string) error {
	return nil
}

func (g *fakeGateway) texts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sent))
	copy(out, g.sent)
	return out
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
