package quiz

import "context"

// Button is one inline keyboard button: a visible label and an opaque callback
// payload echoed back by the chat platform when pressed.
type Button struct {
	Label string
	Data  string
}

// Gateway is the outbound messaging surface of the bot. Implementations talk
// to the chat platform; send failures are the gateway's problem to retry, the
// quiz flow only logs them and keeps its state.
type Gateway interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendButtons(ctx context.Context, userID int64, text string, rows [][]Button) error
	SendAnimation(ctx context.Context, userID int64, url string) error
}

// Callback payloads understood by the conversation flow.
const (
	PayloadTakeQuizPrefix = "takequiz_"
	PayloadAnswerPrefix   = "answer_"
	PayloadRestart        = "restart_quiz"
	PayloadQuit           = "quit"
)
