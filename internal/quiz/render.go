package quiz

import (
	"fmt"
	"strings"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

const (
	correctGIF = "https://media.giphy.com/media/26gN1h5bQPSF7vsoI/giphy.gif"
	wrongGIF   = "https://media.giphy.com/media/l3vR85PnGsBwu1PFK/giphy.gif"
)

func feedbackGIF(correct bool) string {
	if correct {
		return correctGIF
	}
	return wrongGIF
}

func answerButtons(q domain.Question) [][]Button {
	rows := make([][]Button, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []Button{{
			Label: opt,
			Data:  fmt.Sprintf("%s%d", PayloadAnswerPrefix, i),
		}})
	}
	return rows
}

func feedbackText(correct bool, q domain.Question, selected int) string {
	if correct {
		return fmt.Sprintf("✅ Correct! 🎉\n\n🎯 %s\n✅ %s", q.Text, q.Options[selected])
	}
	return fmt.Sprintf("❌ Wrong! The correct answer was:\n\n✅ %s", q.Options[q.CorrectOption])
}

func summaryText(score, total int, top []domain.LeaderboardEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Quiz Completed!\nYour score: %d/%d\n\n", score, total)
	b.WriteString("🏅 Leaderboard:\n")
	for i, e := range top {
		fmt.Fprintf(&b, "%d. %s - %d/%d 🎯\n", i+1, e.DisplayName, e.Score, e.Total)
	}
	return b.String()
}
