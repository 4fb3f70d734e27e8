package duel

import (
	"context"
	"log/slog"
	"sync"

	"pairquiz-backend/api"
)

type answerKey struct {
	gameSessionID string
	questionIndex int
}

// Answers buffers one answer per user per question until both
// participants answered, then delivers them symmetrically.
//
// Multiple goroutines may invoke methods on Answers simultaneously.
type Answers struct {
	// Bound reports if userID is still bound to gameSessionID. When set,
	// answers of unbound users are dropped. It is checked under the
	// Answers lock so an answer racing the end of its session is either
	// dropped here or removed by Discard.
	Bound func(gameSessionID, userID string) bool

	notifier Notifier
	pending  map[answerKey]map[string]string
	mu       sync.Mutex
}

func NewAnswers(notifier Notifier) *Answers {
	return &Answers{
		notifier: notifier,
		pending:  map[answerKey]map[string]string{},
	}
}

// Submit records userID's answer for a question. When the second distinct
// participant answers, both receive a bothAnswersReceived event with their
// own and their opponent's answer and the buffer is cleared.
// It returns true when the pair was delivered.
//
// A user resubmitting before the opponent answered replaces its answer.
// An answer from a user no longer bound to the session is dropped.
func (a *Answers) Submit(ctx context.Context, gameSessionID string, questionIndex int, userID, answer string) bool {
	key := answerKey{gameSessionID: gameSessionID, questionIndex: questionIndex}

	a.mu.Lock()
	if a.Bound != nil && !a.Bound(gameSessionID, userID) {
		a.mu.Unlock()
		return false
	}
	buf, ok := a.pending[key]
	if !ok {
		buf = make(map[string]string, 2)
		a.pending[key] = buf
	}
	buf[userID] = answer
	if len(buf) < 2 {
		a.mu.Unlock()
		return false
	}
	delete(a.pending, key)
	a.mu.Unlock()

	for recipient, own := range buf {
		var opponentAnswer string
		for other, answer := range buf {
			if other != recipient {
				opponentAnswer = answer
			}
		}
		res := api.NewResponse(api.ResponseTypeBothAnswersReceived, api.BothAnswersReceivedResponseData{
			GameSessionID:  gameSessionID,
			QuestionIndex:  questionIndex,
			UserID:         recipient,
			YourAnswer:     own,
			OpponentAnswer: opponentAnswer,
		})
		if err := a.notifier.Send(ctx, recipient, res); err != nil {
			slog.WarnContext(ctx, "both answers received write",
				slog.String("user_id", recipient),
				slog.String("game_session_id", gameSessionID),
				slog.Int("question_index", questionIndex),
				slog.Any("error", err))
		}
	}

	return true
}

// Pending returns the number of answers buffered for a question.
func (a *Answers) Pending(gameSessionID string, questionIndex int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending[answerKey{gameSessionID: gameSessionID, questionIndex: questionIndex}])
}

// Discard drops every buffered answer of a vacated session.
func (a *Answers) Discard(gameSessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.pending {
		if key.gameSessionID == gameSessionID {
			delete(a.pending, key)
		}
	}
}
