package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/catalog"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
)

// Command is an inbound slash command.
type Command struct {
	UserID      int64
	DisplayName string
	Name        string
}

// Document is an inbound file upload with its body already fetched.
type Document struct {
	UserID      int64
	DisplayName string
	FileName    string
	Data        []byte
}

// Callback is an inbound button press carrying an opaque payload.
type Callback struct {
	UserID      int64
	DisplayName string
	Data        string
}

// Dispatcher routes inbound chat events to catalog and session transitions.
// Events for the same user are serialized; different users run concurrently.
type Dispatcher struct {
	catalog *catalog.Service
	machine *quiz.Service
	gw      quiz.Gateway

	// locks holds one mutex per user ever seen and is never evicted: evicting
	// while a handler is queued on the mutex would hand a second handler for
	// the same user a fresh lock and break arrival order. Growth is bounded by
	// the distinct users the bot has talked to.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewDispatcher(cat *catalog.Service, machine *quiz.Service, gw quiz.Gateway) *Dispatcher {
	return &Dispatcher{
		catalog: cat,
		machine: machine,
		gw:      gw,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// userLock returns the per-user mutex that keeps one user's events in arrival
// order without blocking other users.
func (d *Dispatcher) userLock(userID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[userID] = l
	}
	return l
}

// HandleCommand routes a slash command.
func (d *Dispatcher) HandleCommand(ctx context.Context, c Command) {
	l := d.userLock(c.UserID)
	l.Lock()
	defer l.Unlock()

	switch c.Name {
	case "start":
		d.send(ctx, c.UserID, welcomeText)
	case "myquizzes":
		d.listMine(ctx, c.UserID)
	case "allquizzes":
		d.listAll(ctx, c.UserID)
	case "quit":
		if err := d.machine.Quit(ctx, c.UserID); err != nil {
			log.Printf("bot: quit for user %d: %v", c.UserID, err)
		}
	case "cancel":
		if err := d.machine.Cancel(ctx, c.UserID); err != nil {
			log.Printf("bot: cancel for user %d: %v", c.UserID, err)
		}
	default:
		d.send(ctx, c.UserID, "Unknown command. Send /start for instructions.")
	}
}

// HandleDocument ingests a quiz upload: the file must be named *.json, parse
// as an array of questions, and every question must be valid. The first
// failure rejects the whole upload; nothing is stored.
func (d *Dispatcher) HandleDocument(ctx context.Context, doc Document) {
	l := d.userLock(doc.UserID)
	l.Lock()
	defer l.Unlock()

	if !strings.HasSuffix(doc.FileName, ".json") {
		d.send(ctx, doc.UserID, "Please upload a file with a .json extension.")
		return
	}

	questions, err := parseQuestions(doc.Data)
	if err != nil {
		d.send(ctx, doc.UserID, uploadErrorText(err))
		return
	}

	name := strings.TrimSuffix(doc.FileName, ".json")
	id, err := d.catalog.Create(ctx, name, doc.UserID, questions)
	if err != nil {
		d.send(ctx, doc.UserID, uploadErrorText(err))
		return
	}

	d.sendButtons(ctx, doc.UserID,
		fmt.Sprintf("Quiz '%s' created successfully!\nPress the button below to start.", name),
		[][]quiz.Button{{{
			Label: "Start Quiz",
			Data:  fmt.Sprintf("%s%d", quiz.PayloadTakeQuizPrefix, id),
		}}})
}

// HandleCallback routes a button press. Unrecognized payloads are logged and
// dropped so duplicate or late taps never surface errors to the user.
func (d *Dispatcher) HandleCallback(ctx context.Context, c Callback) {
	l := d.userLock(c.UserID)
	l.Lock()
	defer l.Unlock()

	switch {
	case strings.HasPrefix(c.Data, quiz.PayloadTakeQuizPrefix):
		raw := strings.TrimPrefix(c.Data, quiz.PayloadTakeQuizPrefix)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			d.send(ctx, c.UserID, "Invalid quiz ID.")
			return
		}
		if err := d.machine.Start(ctx, c.UserID, c.DisplayName, id); err != nil {
			log.Printf("bot: start quiz %d for user %d: %v", id, c.UserID, err)
		}

	case strings.HasPrefix(c.Data, quiz.PayloadAnswerPrefix):
		raw := strings.TrimPrefix(c.Data, quiz.PayloadAnswerPrefix)
		idx, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("bot: malformed answer payload %q from user %d", c.Data, c.UserID)
			return
		}
		if err := d.machine.SubmitAnswer(ctx, c.UserID, idx); err != nil && !domain.IsValidation(err) {
			log.Printf("bot: answer from user %d: %v", c.UserID, err)
		}

	case c.Data == quiz.PayloadRestart:
		if err := d.machine.Restart(ctx, c.UserID); err != nil {
			log.Printf("bot: restart for user %d: %v", c.UserID, err)
		}

	case c.Data == quiz.PayloadQuit:
		if err := d.machine.Quit(ctx, c.UserID); err != nil {
			log.Printf("bot: quit for user %d: %v", c.UserID, err)
		}

	default:
		log.Printf("bot: unrecognized callback payload %q from user %d", c.Data, c.UserID)
	}
}

func (d *Dispatcher) listMine(ctx context.Context, userID int64) {
	summaries, err := d.catalog.ListByCreator(ctx, userID)
	if err != nil {
		log.Printf("bot: list quizzes for user %d: %v", userID, err)
		d.send(ctx, userID, "Could not load your quizzes, please try again.")
		return
	}
	if len(summaries) == 0 {
		d.send(ctx, userID, "You haven't created any quizzes yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Your quizzes:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "ID: %d - %s (%d questions)\n", s.ID, s.Name, s.QuestionCount)
	}
	d.send(ctx, userID, b.String())
}

func (d *Dispatcher) listAll(ctx context.Context, userID int64) {
	summaries, err := d.catalog.ListAll(ctx)
	if err != nil {
		log.Printf("bot: list all quizzes: %v", err)
		d.send(ctx, userID, "Could not load the quiz list, please try again.")
		return
	}
	if len(summaries) == 0 {
		d.send(ctx, userID, "No quizzes available yet.")
		return
	}
	rows := make([][]quiz.Button, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []quiz.Button{{
			Label: fmt.Sprintf("%s (ID: %d)", s.Name, s.ID),
			Data:  fmt.Sprintf("%s%d", quiz.PayloadTakeQuizPrefix, s.ID),
		}})
	}
	d.sendButtons(ctx, userID, "Available quizzes:", rows)
}

func uploadErrorText(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return "Could not create the quiz: " + ve.Reason
	}
	return "Error parsing JSON: " + err.Error()
}

func (d *Dispatcher) send(ctx context.Context, userID int64, text string) {
	if err := d.gw.SendText(ctx, userID, text); err != nil {
		log.Printf("bot: send to user %d: %v", userID, err)
	}
}

func (d *Dispatcher) sendButtons(ctx context.Context, userID int64, text string, rows [][]quiz.Button) {
	if err := d.gw.SendButtons(ctx, userID, text, rows); err != nil {
		log.Printf("bot: send buttons to user %d: %v", userID, err)
	}
}
