package telebot

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/bot"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
)

// Gateway adapts a Telegram bot to the quiz.Gateway surface and feeds inbound
// updates into the dispatcher. Webhook and long-polling modes are both
// supported; the choice is made at construction from the webhook URL.
type Gateway struct {
	bot *tele.Bot
}

// Config for the Telegram connection.
type Config struct {
	Token string
	// WebhookURL switches the bot to webhook delivery when non-empty.
	WebhookURL string
	// Listen is the local address the webhook server binds to.
	Listen string
	// PollTimeout applies to long polling only.
	PollTimeout time.Duration
}

func New(c Config) (*Gateway, error) {
	var poller tele.Poller
	if c.WebhookURL != "" {
		poller = &tele.Webhook{
			Listen:   c.Listen,
			Endpoint: &tele.WebhookEndpoint{PublicURL: c.WebhookURL},
		}
	} else {
		timeout := c.PollTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		poller = &tele.LongPoller{Timeout: timeout}
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  c.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, err
	}
	return &Gateway{bot: b}, nil
}

// Attach registers the update handlers that translate Telegram updates into
// dispatcher events.
func (g *Gateway) Attach(d *bot.Dispatcher) {
	for _, name := range []string{"start", "myquizzes", "allquizzes", "quit", "cancel"} {
		name := name
		g.bot.Handle("/"+name, func(c tele.Context) error {
			d.HandleCommand(context.Background(), bot.Command{
				UserID:      c.Sender().ID,
				DisplayName: c.Sender().FirstName,
				Name:        name,
			})
			return nil
		})
	}

	g.bot.Handle(tele.OnDocument, func(c tele.Context) error {
		doc := c.Message().Document
		rc, err := g.bot.File(&doc.File)
		if err != nil {
			log.Printf("telegram: download %s: %v", doc.FileName, err)
			return c.Send("Could not download that file, please try again.")
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			log.Printf("telegram: read %s: %v", doc.FileName, err)
			return c.Send("Could not read that file, please try again.")
		}
		d.HandleDocument(context.Background(), bot.Document{
			UserID:      c.Sender().ID,
			DisplayName: c.Sender().FirstName,
			FileName:    doc.FileName,
			Data:        data,
		})
		return nil
	})

	g.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		// telebot prefixes unique-tagged callbacks with "\f"
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		if err := c.Respond(); err != nil {
			log.Printf("telegram: ack callback: %v", err)
		}
		d.HandleCallback(context.Background(), bot.Callback{
			UserID:      c.Sender().ID,
			DisplayName: c.Sender().FirstName,
			Data:        data,
		})
		return nil
	})
}

// Start runs the update loop. It blocks until Stop is called.
func (g *Gateway) Start() {
	g.bot.Start()
}

func (g *Gateway) Stop() {
	g.bot.Stop()
}

func (g *Gateway) SendText(_ context.Context, userID int64, text string) error {
	_, err := g.bot.Send(tele.ChatID(userID), text)
	return err
}

func (g *Gateway) SendButtons(_ context.Context, userID int64, text string, rows [][]quiz.Button) error {
	keyboard := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tele.InlineButton{Text: b.Label, Data: b.Data})
		}
		keyboard = append(keyboard, btns)
	}
	_, err := g.bot.Send(tele.ChatID(userID), text, &tele.ReplyMarkup{InlineKeyboard: keyboard})
	return err
}

func (g *Gateway) SendAnimation(_ context.Context, userID int64, url string) error {
	_, err := g.bot.Send(tele.ChatID(userID), &tele.Animation{File: tele.FromURL(url)})
	return err
}
