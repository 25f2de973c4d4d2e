package bot

import (
	"encoding/json"
	"fmt"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

const welcomeText = `Welcome to the Quiz Bot!

• To create a quiz, simply upload a JSON file containing your questions.
  The JSON must be a list of questions, for example:

[
  {
    "question": "What is the capital of France?",
    "options": ["London", "Paris", "Berlin", "Rome"],
    "correct_option": 1
  }
]

question: the question text.
options: an array of possible answers (at least 2).
correct_option: the index (starting from 0) of the correct answer.

• Use /myquizzes to see quizzes you've created.
• Use /allquizzes to browse all quizzes and take one.
• Use /quit to leave a quiz, /cancel to abort the conversation.`

// rawQuestion mirrors domain.Question with pointer fields so an absent key is
// distinguishable from a zero value. "correct_option": 0 is a legal answer;
// no "correct_option" key at all is a rejected upload.
type rawQuestion struct {
	Text          *string   `json:"question"`
	Options       *[]string `json:"options"`
	CorrectOption *int      `json:"correct_option"`
}

// parseQuestions decodes an uploaded quiz body. The top-level value must be a
// JSON array and every element must carry all three question fields; value
// validation happens in the catalog so the whole upload is accepted or
// rejected in one step.
func parseQuestions(data []byte) ([]domain.Question, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &domain.ValidationError{Reason: "the JSON must be a list of questions"}
	}
	var rows []rawQuestion
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(rows))
	for i, r := range rows {
		switch {
		case r.Text == nil:
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("question %d: missing \"question\" field", i+1)}
		case r.Options == nil:
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("question %d: missing \"options\" field", i+1)}
		case r.CorrectOption == nil:
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("question %d: missing \"correct_option\" field", i+1)}
		}
		questions = append(questions, domain.Question{
			Text:          *r.Text,
			Options:       *r.Options,
			CorrectOption: *r.CorrectOption,
		})
	}
	return questions, nil
}
