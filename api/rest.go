package api

import "time"

// QuestionOption is one selectable answer of a quiz question.
type QuestionOption struct {
	Text     string `json:"text"               yaml:"text"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

const (
	QuestionStatusActive   = "active"
	QuestionStatusInactive = "inactive"
)

type Question struct {
	ID       int64            `json:"id"       yaml:"-"`
	Stage    int              `json:"stage"    yaml:"stage"`
	Question string           `json:"question" yaml:"question"`
	Options  []QuestionOption `json:"options"  yaml:"options"`
	Status   string           `json:"status"   yaml:"status"`
}

type QuestionsResponse struct {
	Stage     int        `json:"stage"`
	Questions []Question `json:"questions"`
}

type SaveResultRequest struct {
	QuizSessionID  string   `json:"quizSessionId"`
	UserID         string   `json:"userId"`
	ReceiverID     string   `json:"receiverId"`
	TotalQuestions int      `json:"totalQuestions"`
	Answers        []string `json:"answers"`
}

func (r *SaveResultRequest) Validate() error {
	c := fieldCheck{}
	c.required("quizSessionId", r.QuizSessionID)
	c.required("userId", r.UserID)
	c.required("receiverId", r.ReceiverID)
	if r.TotalQuestions <= 0 {
		c.invalid("totalQuestions", "must be greater than 0")
	}
	return c.err()
}

type Result struct {
	ID             int64     `json:"id"`
	QuizSessionID  string    `json:"quizSessionId"`
	UserID         string    `json:"userId"`
	ReceiverID     string    `json:"receiverId"`
	TotalQuestions int       `json:"totalQuestions"`
	Answers        []string  `json:"answers"`
	CreatedAt      time.Time `json:"createdAt"`
}

type SaveResultResponse struct {
	Result Result `json:"result"`
}

type UserScore struct {
	UserID  string   `json:"userId"`
	Score   int      `json:"score"`
	Answers []string `json:"answers"`
}

type CompatibilityResponse struct {
	QuizSessionID  string      `json:"quizSessionId"`
	Compatibility  int         `json:"compatibility"`
	Shared         int         `json:"shared"`
	TotalQuestions int         `json:"totalQuestions"`
	Results        []UserScore `json:"results"`
}
