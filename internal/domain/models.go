package domain

// Question is a single multiple-choice question. CorrectOption is a 0-based
// index into Options.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// Validate checks the structural invariant of a question: non-empty text, at
// least two options, and a correct-option index inside the options range.
func (q Question) Validate() error {
	if q.Text == "" {
		return &ValidationError{Reason: "question text is empty"}
	}
	if len(q.Options) < 2 {
		return &ValidationError{Reason: "a question needs at least 2 options"}
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return &ValidationError{Reason: "correct_option is out of range"}
	}
	return nil
}

// Quiz is a named, creator-owned ordered list of questions. Quizzes are
// immutable after creation.
type Quiz struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatorID int64      `json:"creator_id"`
	Questions []Question `json:"questions"`
}

// QuizSummary is the listing view of a quiz.
type QuizSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// SessionState is the lifecycle state of a quiz-taking session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionActive
	SessionFinished
	SessionCancelled
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionActive:
		return "active"
	case SessionFinished:
		return "finished"
	case SessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LeaderboardEntry is the latest recorded result for one user. A new finished
// session overwrites the previous entry for that user.
type LeaderboardEntry struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
}
