// Package duel binds pairs of users to game sessions and synchronizes
// their answers question by question.
package duel

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pairquiz-backend/api"

	"github.com/lithammer/shortuuid/v3"
)

var (
	ErrAlreadyInGame = errors.New("user is already in a game")
	ErrSameUser      = errors.New("a game needs two distinct users")
)

// Notifier routes an event to a user's live connection.
type Notifier interface {
	Send(ctx context.Context, userID string, v any) error
}

type session struct {
	id    string
	users [2]string
}

func (s *session) opponent(userID string) (string, bool) {
	switch userID {
	case s.users[0]:
		return s.users[1], true
	case s.users[1]:
		return s.users[0], true
	}
	return "", false
}

// Sessions owns the active game session table.
//
// Multiple goroutines may invoke methods on Sessions simultaneously.
type Sessions struct {
	notifier Notifier

	// sessions indexes the pair of users still bound to a session.
	sessions map[string]*session
	// users maps a user to its current session id.
	users map[string]string

	mu sync.Mutex

	// OnEnd is called once a session has no bound user left.
	OnEnd func(gameSessionID string)
}

func NewSessions(notifier Notifier) *Sessions {
	return &Sessions{
		notifier: notifier,
		sessions: map[string]*session{},
		users:    map[string]string{},
	}
}

// Create binds both users to a new session and returns its id.
// It fails without side effects if either user is already bound.
func (s *Sessions) Create(userA, userB string) (string, error) {
	if userA == userB {
		return "", ErrSameUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userA]; ok {
		return "", ErrAlreadyInGame
	}
	if _, ok := s.users[userB]; ok {
		return "", ErrAlreadyInGame
	}

	id := shortuuid.New()
	for _, exist := s.sessions[id]; exist; _, exist = s.sessions[id] {
		id = shortuuid.New()
	}

	s.sessions[id] = &session{id: id, users: [2]string{userA, userB}}
	s.users[userA] = id
	s.users[userB] = id

	return id, nil
}

// InGame reports if userID is bound to a session.
func (s *Sessions) InGame(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok
}

// SessionOf returns the session id userID is bound to.
func (s *Sessions) SessionOf(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.users[userID]
	return id, ok
}

// Bound reports if userID is currently bound to gameSessionID.
func (s *Sessions) Bound(gameSessionID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID] == gameSessionID && gameSessionID != ""
}

// Opponent returns the other participant of gameSessionID.
func (s *Sessions) Opponent(gameSessionID, userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[gameSessionID]
	if !ok {
		return "", false
	}
	return sess.opponent(userID)
}

// EndManually tears down gameSessionID on behalf of userID, notifies the
// opponent and acknowledges the caller. Ending a session the user is not
// bound to only acknowledges the caller.
func (s *Sessions) EndManually(ctx context.Context, gameSessionID, userID string) {
	s.mu.Lock()
	opponentID, ended := s.end(gameSessionID, userID)
	s.mu.Unlock()

	if ended {
		s.ended(gameSessionID)
		s.notifyOpponent(ctx, gameSessionID, userID, opponentID, true)
	}

	res := api.NewResponse(api.ResponseTypeGameEnded, api.GameEndedResponseData{
		UserID:        userID,
		GameSessionID: gameSessionID,
	})
	if err := s.notifier.Send(ctx, userID, res); err != nil {
		slog.WarnContext(ctx, "game ended write",
			slog.String("user_id", userID),
			slog.String("game_session_id", gameSessionID),
			slog.Any("error", err))
	}
}

// EndOnDisconnect tears down the session of a disconnected user and
// notifies the opponent. It returns the ended session id.
func (s *Sessions) EndOnDisconnect(ctx context.Context, userID string) (string, bool) {
	s.mu.Lock()
	gameSessionID, bound := s.users[userID]
	var (
		opponentID string
		ended      bool
	)
	if bound {
		opponentID, ended = s.end(gameSessionID, userID)
	}
	s.mu.Unlock()

	if !ended {
		return "", false
	}

	s.ended(gameSessionID)
	s.notifyOpponent(ctx, gameSessionID, userID, opponentID, false)

	return gameSessionID, true
}

// Leave unbinds userID from gameSessionID without notifying anyone, both
// participants are expected to leave after a session concludes.
func (s *Sessions) Leave(userID, gameSessionID string) bool {
	s.mu.Lock()
	id, ok := s.users[userID]
	if !ok || id != gameSessionID {
		s.mu.Unlock()
		return false
	}
	delete(s.users, userID)

	drained := false
	if sess, ok := s.sessions[gameSessionID]; ok {
		opponentID, _ := sess.opponent(userID)
		if s.users[opponentID] != gameSessionID {
			delete(s.sessions, gameSessionID)
			drained = true
		}
	}
	s.mu.Unlock()

	if drained {
		s.ended(gameSessionID)
	}
	return true
}

// end removes both bindings of gameSessionID if userID is bound to it.
// It returns the opponent still bound to the session, if any.
func (s *Sessions) end(gameSessionID, userID string) (string, bool) {
	if s.users[userID] != gameSessionID {
		return "", false
	}
	sess, ok := s.sessions[gameSessionID]
	if !ok {
		delete(s.users, userID)
		return "", false
	}

	opponentID, _ := sess.opponent(userID)
	delete(s.users, userID)
	delete(s.sessions, gameSessionID)

	if s.users[opponentID] != gameSessionID {
		// Opponent already soft-left.
		return "", true
	}
	delete(s.users, opponentID)

	return opponentID, true
}

func (s *Sessions) notifyOpponent(ctx context.Context, gameSessionID, userID, opponentID string, manual bool) {
	if opponentID == "" {
		return
	}
	res := api.NewResponse(api.ResponseTypeOpponentDisconnected, api.OpponentDisconnectedResponseData{
		GameSessionID: gameSessionID,
		OpponentID:    userID,
		Manual:        manual,
	})
	if err := s.notifier.Send(ctx, opponentID, res); err != nil {
		slog.WarnContext(ctx, "opponent disconnected write",
			slog.String("user_id", opponentID),
			slog.String("game_session_id", gameSessionID),
			slog.Any("error", err))
	}
}

func (s *Sessions) ended(gameSessionID string) {
	if s.OnEnd != nil {
		s.OnEnd(gameSessionID)
	}
}

// Len returns the number of sessions with at least one bound user.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
