// Package presence tracks which users currently hold a live connection.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"pairquiz-backend/api"

	"golang.org/x/sync/errgroup"
)

// ErrOffline is returned when sending to a user without a live connection.
var ErrOffline = errors.New("user is offline")

// Conn is a live connection handle.
type Conn interface {
	ID() string
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

// Registry maps a user identity to its current connection.
// The last join for a user wins, there is no multi-device fan-out.
//
// Multiple goroutines may invoke methods on a Registry simultaneously.
type Registry struct {
	users map[string]Conn
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		users: map[string]Conn{},
	}
}

// Join binds userID to conn, announces the user to every other connection
// and sends the online users list back to conn.
//
// A previous connection of the same user is unbound and closed in the
// background once conn got its online users list. A conn
// previously joined under another user id is rebound to userID.
func (r *Registry) Join(ctx context.Context, userID string, conn Conn) error {
	r.mu.Lock()
	previous, replaced := r.users[userID]
	for id, c := range r.users {
		if c.ID() == conn.ID() && id != userID {
			delete(r.users, id)
		}
	}
	r.users[userID] = conn
	online := r.onlineUsers()
	r.mu.Unlock()

	errs := []error{}

	res := api.NewResponse(api.ResponseTypeUserOnline, api.UserPresenceResponseData{UserID: userID})
	if err := r.Broadcast(ctx, res, conn.ID()); err != nil {
		errs = append(errs, err)
	}
	if err := conn.WriteJSON(ctx, api.NewResponse(api.ResponseTypeOnlineUsers, online)); err != nil {
		errs = append(errs, err)
	}

	// The old peer may be dead, its close handshake must not hold the joiner.
	if replaced && previous.ID() != conn.ID() {
		go closeSuperseded(context.WithoutCancel(ctx), userID, previous)
	}

	return errors.Join(errs...)
}

func closeSuperseded(ctx context.Context, userID string, conn Conn) {
	if err := conn.Close(); err != nil {
		slog.DebugContext(ctx, "close superseded conn",
			slog.String("user_id", userID),
			slog.String("conn_id", conn.ID()),
			slog.Any("error", err))
	}
}

// Leave unbinds the user joined with conn and broadcasts its departure.
// It returns the unbound user id and false if conn was not bound, in which
// case nothing happens.
func (r *Registry) Leave(ctx context.Context, conn Conn) (string, bool) {
	r.mu.Lock()
	userID, ok := r.userByConn(conn.ID())
	if ok {
		delete(r.users, userID)
	}
	r.mu.Unlock()

	if !ok {
		return "", false
	}

	res := api.NewResponse(api.ResponseTypeUserOffline, api.UserPresenceResponseData{UserID: userID})
	if err := r.Broadcast(ctx, res, ""); err != nil {
		slog.WarnContext(ctx, "broadcast user offline",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}

	return userID, true
}

func (r *Registry) userByConn(connID string) (string, bool) {
	for userID, c := range r.users {
		if c.ID() == connID {
			return userID, true
		}
	}
	return "", false
}

// UserByConn returns the user id currently bound to conn.
func (r *Registry) UserByConn(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userByConn(conn.ID())
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Lookup returns the connection currently bound to userID.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.users[userID]
	return c, ok
}

func (r *Registry) onlineUsers() []string {
	users := make([]string, 0, len(r.users))
	for userID := range r.users {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// Send routes an event to the connection of userID.
func (r *Registry) Send(ctx context.Context, userID string, v any) error {
	conn, ok := r.Lookup(userID)
	if !ok {
		return ErrOffline
	}
	return conn.WriteJSON(ctx, v)
}

// Broadcast sends an event to every bound connection except the one
// identified by exceptConnID. Delivery is best effort.
func (r *Registry) Broadcast(ctx context.Context, v any, exceptConnID string) error {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.users))
	for _, c := range r.users {
		if c.ID() == exceptConnID {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	errs := errgroup.Group{}
	for _, conn := range conns {
		errs.Go(func() error {
			return conn.WriteJSON(ctx, v)
		})
	}
	return errs.Wait()
}
