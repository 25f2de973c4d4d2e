package bot_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/bot"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/catalog"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/infra/memory"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/leaderboard"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
)

const mathJSON = `[{"question":"2+2?","options":["3","4","5","6"],"correct_option":1}]`

func TestStartCommandSendsInstructions(t *testing.T) {
	env := newBotEnv()
	env.d.HandleCommand(context.Background(), bot.Command{UserID: 1, Name: "start"})
	if !env.gw.sawText("Welcome to the Quiz Bot") {
		t.Fatalf("expected welcome text, got %v", env.gw.allTexts())
	}
}

func TestUploadCreatesQuizWithStartButton(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	env.d.HandleDocument(ctx, bot.Document{UserID: 42, FileName: "math.json", Data: []byte(mathJSON)})

	all, err := env.cat.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != 1 || all[0].Name != "math" || all[0].QuestionCount != 1 {
		t.Fatalf("unexpected catalog %+v", all)
	}

	data, ok := env.gw.lastButtonData()
	if !ok || data != "takequiz_1" {
		t.Fatalf("expected takequiz_1 button, got %q", data)
	}
}

func TestUploadRejectsNonJSONFilename(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "quiz.txt", Data: []byte(mathJSON)})

	if !env.gw.sawText(".json extension") {
		t.Fatalf("expected extension error, got %v", env.gw.allTexts())
	}
	if all, _ := env.cat.ListAll(ctx); len(all) != 0 {
		t.Fatalf("catalog must stay empty")
	}
}

func TestUploadRejectsNonArrayJSON(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "bad.json", Data: []byte(`{"question":"?"}`)})

	if !env.gw.sawText("list of questions") {
		t.Fatalf("expected array-shape error, got %v", env.gw.allTexts())
	}
	if all, _ := env.cat.ListAll(ctx); len(all) != 0 {
		t.Fatalf("catalog must stay empty")
	}
}

func TestUploadRejectsQuestionWithMissingFields(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"no correct_option", `[{"question":"2+2?","options":["3","4"]}]`, `missing "correct_option"`},
		{"no options", `[{"question":"2+2?","correct_option":1}]`, `missing "options"`},
		{"no question", `[{"options":["3","4"],"correct_option":1}]`, `missing "question"`},
	}
	for _, tc := range cases {
		env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "math.json", Data: []byte(tc.body)})
		if !env.gw.sawText(tc.want) {
			t.Fatalf("%s: expected %q error, got %v", tc.name, tc.want, env.gw.allTexts())
		}
	}
	if all, _ := env.cat.ListAll(ctx); len(all) != 0 {
		t.Fatalf("catalog must stay empty, got %+v", all)
	}
}

func TestUploadAcceptsExplicitZeroCorrectOption(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	env.d.HandleDocument(ctx, bot.Document{
		UserID:   1,
		FileName: "math.json",
		Data:     []byte(`[{"question":"2+2?","options":["4","5"],"correct_option":0}]`),
	})

	all, err := env.cat.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].QuestionCount != 1 {
		t.Fatalf("expected quiz accepted, got %+v", all)
	}
}

func TestUploadIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	mixed := `[
		{"question":"ok","options":["a","b"],"correct_option":0},
		{"question":"bad","options":["a","b"],"correct_option":9}
	]`
	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "mixed.json", Data: []byte(mixed)})

	if !env.gw.sawText("Could not create the quiz") {
		t.Fatalf("expected validation message, got %v", env.gw.allTexts())
	}
	if all, _ := env.cat.ListAll(ctx); len(all) != 0 {
		t.Fatalf("partial quiz must not be stored")
	}
}

func TestTakeQuizCallbackStartsSession(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()
	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "math.json", Data: []byte(mathJSON)})

	env.d.HandleCallback(ctx, bot.Callback{UserID: 42, DisplayName: "Alice", Data: "takequiz_1"})

	if got := env.gw.lastButtonsText(); got != "2+2?" {
		t.Fatalf("expected question sent, got %q", got)
	}
}

func TestAnswerCallbackFinishesQuiz(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()
	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "math.json", Data: []byte(mathJSON)})
	env.d.HandleCallback(ctx, bot.Callback{UserID: 42, DisplayName: "Alice", Data: "takequiz_1"})

	env.d.HandleCallback(ctx, bot.Callback{UserID: 42, DisplayName: "Alice", Data: "answer_1"})

	if !env.gw.sawText("Quiz Completed") {
		t.Fatalf("expected summary, got %v", env.gw.allTexts())
	}
	top, err := env.board.TopN(ctx, 5)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	if len(top) != 1 || top[0].UserID != 42 || top[0].Score != 1 || top[0].Total != 1 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}
}

func TestInvalidQuizIDCallback(t *testing.T) {
	env := newBotEnv()
	env.d.HandleCallback(context.Background(), bot.Callback{UserID: 1, Data: "takequiz_abc"})
	if !env.gw.sawText("Invalid quiz ID") {
		t.Fatalf("expected invalid id message, got %v", env.gw.allTexts())
	}
}

func TestUnrecognizedCallbackIsDropped(t *testing.T) {
	env := newBotEnv()
	env.d.HandleCallback(context.Background(), bot.Callback{UserID: 1, Data: "mystery_payload"})
	if n := env.gw.sendCount(); n != 0 {
		t.Fatalf("unknown payloads must not reach the user, got %d sends", n)
	}
}

func TestMyQuizzesFiltersByCreator(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()
	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "mine.json", Data: []byte(mathJSON)})
	env.d.HandleDocument(ctx, bot.Document{UserID: 2, FileName: "theirs.json", Data: []byte(mathJSON)})

	env.d.HandleCommand(ctx, bot.Command{UserID: 1, Name: "myquizzes"})
	if !env.gw.sawText("mine") || env.gw.sawText("theirs (") {
		t.Fatalf("expected only own quizzes, got %v", env.gw.allTexts())
	}

	env.d.HandleCommand(ctx, bot.Command{UserID: 3, Name: "myquizzes"})
	if !env.gw.sawText("haven't created any quizzes") {
		t.Fatalf("expected empty message for stranger")
	}
}

func TestAllQuizzesRendersTakeButtons(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv()

	env.d.HandleCommand(ctx, bot.Command{UserID: 1, Name: "allquizzes"})
	if !env.gw.sawText("No quizzes available") {
		t.Fatalf("expected empty-catalog message")
	}

	env.d.HandleDocument(ctx, bot.Document{UserID: 1, FileName: "math.json", Data: []byte(mathJSON)})
	env.d.HandleCommand(ctx, bot.Command{UserID: 2, Name: "allquizzes"})

	data, ok := env.gw.lastButtonData()
	if !ok || data != "takequiz_1" {
		t.Fatalf("expected take-quiz button, got %q", data)
	}
}

// ---- helpers ----

type botEnv struct {
	cat   *catalog.Service
	board *leaderboard.Service
	gw    *fakeGateway
	d     *bot.Dispatcher
}

func newBotEnv() *botEnv {
	cat := catalog.NewService(memory.NewQuizRepository())
	board := leaderboard.NewService(memory.NewLeaderboardStore(), 5)
	gw := &fakeGateway{}
	machine := quiz.NewService(memory.NewSessionStore(), cat, board, gw, quiz.Options{})
	return &botEnv{
		cat:   cat,
		board: board,
		gw:    gw,
		d:     bot.NewDispatcher(cat, machine, gw),
	}
}

type fakeGateway struct {
	mu      sync.Mutex
	texts   []string
	buttons []buttonSend
	anims   int
}

type buttonSend struct {
	text string
	rows [][]quiz.Button
}

func (g *fakeGateway) SendText(_ context.Context, _ int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *fakeGateway) SendButtons(_ context.Context, _ int64, text string, rows [][]quiz.Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buttons = append(g.buttons, buttonSend{text: text, rows: rows})
	return nil
}

func (g *fakeGateway) SendAnimation(_ context.Context, _ int64, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.anims++
	return nil
}

func (g *fakeGateway) sawText(substr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	for _, b := range g.buttons {
		if strings.Contains(b.text, substr) {
			return true
		}
	}
	return false
}

func (g *fakeGateway) allTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.texts))
	copy(out, g.texts)
	return out
}

func (g *fakeGateway) lastButtonsText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.buttons) == 0 {
		return ""
	}
	return g.buttons[len(g.buttons)-1].text
}

func (g *fakeGateway) lastButtonData() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.buttons) == 0 {
		return "", false
	}
	rows := g.buttons[len(g.buttons)-1].rows
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", false
	}
	return rows[0][0].Data, true
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.texts) + len(g.buttons) + g.anims
}
