// Package invite negotiates time-limited duel invitations between two users.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairquiz-backend/api"

	"github.com/benbjohnson/clock"
	"github.com/lithammer/shortuuid/v3"
)

var (
	ErrRecipientOffline    = errors.New("recipient is offline")
	ErrAlreadyInGame       = errors.New("user is already in a game")
	ErrPendingInviteExists = errors.New("a pending invite already exists")
	ErrSenderNotFound      = errors.New("sender not found")
	ErrInvalidInvitation   = errors.New("invalid invitation")
	ErrSelfInvite          = errors.New("cannot invite yourself")
)

const (
	DefaultTimeout = 30 * time.Second

	// PlaceholderName replaces a recipient name that could not be resolved.
	PlaceholderName = "Someone"

	notifyTimeout = 5 * time.Second
)

// Presence gives access to live connections.
type Presence interface {
	IsOnline(userID string) bool
	Send(ctx context.Context, userID string, v any) error
}

// Sessions binds the two users of an accepted invitation to a game session.
type Sessions interface {
	InGame(userID string) bool
	Create(userA, userB string) (string, error)
}

// Profiles resolves user display names.
type Profiles interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Invitation struct {
	ID          string
	SenderID    string
	SenderName  string
	RecipientID string
	Status      api.InvitationStatus
	Level       int
	CreatedAt   time.Time
	ExpiresAt   time.Time

	timer *clock.Timer
}

func (inv *Invitation) involves(userID string) bool {
	return inv.SenderID == userID || inv.RecipientID == userID
}

// transition moves a pending invitation to status. It reports false if
// the invitation was already resolved. Callers must hold the negotiator lock.
func (inv *Invitation) transition(status api.InvitationStatus) bool {
	if inv.Status != api.InvitationStatusPending {
		return false
	}
	inv.Status = status
	if inv.timer != nil {
		inv.timer.Stop()
	}
	return true
}

func (inv *Invitation) toAPI() api.InvitationData {
	return api.InvitationData{
		InvitationID: inv.ID,
		SenderID:     inv.SenderID,
		SenderName:   inv.SenderName,
		RecipientID:  inv.RecipientID,
		Status:       inv.Status,
		Level:        inv.Level,
		CreatedAt:    inv.CreatedAt,
		ExpiresAt:    inv.ExpiresAt,
	}
}

type Options struct {
	// Timeout sets the duration before a pending invitation expires.
	//
	// Default is 30 seconds.
	Timeout time.Duration

	// Clock schedules expiries, defaults to the wall clock.
	Clock clock.Clock
}

// Negotiator owns the pending invitation table.
//
// Multiple goroutines may invoke methods on a Negotiator simultaneously.
type Negotiator struct {
	presence Presence
	sessions Sessions
	profiles Profiles
	clock    clock.Clock
	timeout  time.Duration

	invitations map[string]*Invitation
	mu          sync.Mutex
}

func NewNegotiator(presence Presence, sessions Sessions, profiles Profiles, opts Options) *Negotiator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Negotiator{
		presence:    presence,
		sessions:    sessions,
		profiles:    profiles,
		clock:       opts.Clock,
		timeout:     opts.Timeout,
		invitations: map[string]*Invitation{},
	}
}

// Send creates an invitation from senderID to recipientID, pushes it to
// the recipient, acknowledges the sender and schedules its expiry.
//
// Preconditions are checked in order: recipient online, nobody in game,
// nobody in a pending invitation, sender display name resolvable.
func (n *Negotiator) Send(ctx context.Context, senderID, recipientID string, level int) (api.InvitationData, error) {
	if senderID == recipientID {
		return api.InvitationData{}, ErrSelfInvite
	}
	if level <= 0 {
		level = 1
	}

	n.mu.Lock()
	err := n.check(senderID, recipientID)
	n.mu.Unlock()
	if err != nil {
		return api.InvitationData{}, err
	}

	senderName, err := n.profiles.DisplayName(ctx, senderID)
	if err != nil {
		return api.InvitationData{}, fmt.Errorf("%w: %w", ErrSenderNotFound, err)
	}

	// The name lookup let other events through, check again before committing.
	n.mu.Lock()
	if err := n.check(senderID, recipientID); err != nil {
		n.mu.Unlock()
		return api.InvitationData{}, err
	}

	now := n.clock.Now()
	inv := &Invitation{
		ID:          n.newID(),
		SenderID:    senderID,
		SenderName:  senderName,
		RecipientID: recipientID,
		Status:      api.InvitationStatusPending,
		Level:       level,
		CreatedAt:   now,
		ExpiresAt:   now.Add(n.timeout),
	}
	id := inv.ID
	inv.timer = n.clock.AfterFunc(n.timeout, func() {
		n.expire(id)
	})
	n.invitations[id] = inv
	data := inv.toAPI()
	n.mu.Unlock()

	n.send(ctx, recipientID, api.NewResponse(api.ResponseTypeReceiveGameInvite, data))
	n.send(ctx, senderID, api.NewResponse(api.ResponseTypeInviteSent, data))

	return data, nil
}

func (n *Negotiator) check(senderID, recipientID string) error {
	if !n.presence.IsOnline(recipientID) {
		return ErrRecipientOffline
	}
	if n.sessions.InGame(senderID) || n.sessions.InGame(recipientID) {
		return ErrAlreadyInGame
	}
	for _, inv := range n.invitations {
		if inv.Status != api.InvitationStatusPending {
			continue
		}
		if inv.involves(senderID) || inv.involves(recipientID) {
			return ErrPendingInviteExists
		}
	}
	return nil
}

func (n *Negotiator) newID() string {
	id := shortuuid.New()
	for _, exist := n.invitations[id]; exist; _, exist = n.invitations[id] {
		id = shortuuid.New()
	}
	return id
}

// Respond resolves a pending invitation on behalf of its recipient.
//
// On acceptance both users are bound to a new game session and receive
// inviteAccepted. On rejection only the sender is told.
func (n *Negotiator) Respond(ctx context.Context, invitationID, recipientID string, accepted bool) error {
	n.mu.Lock()
	inv, ok := n.invitations[invitationID]
	if !ok || inv.Status != api.InvitationStatusPending || inv.RecipientID != recipientID {
		n.mu.Unlock()
		return ErrInvalidInvitation
	}

	if !accepted {
		inv.transition(api.InvitationStatusRejected)
		delete(n.invitations, invitationID)
		n.mu.Unlock()

		n.rejected(ctx, inv)
		return nil
	}

	gameSessionID, err := n.sessions.Create(inv.SenderID, inv.RecipientID)
	if err != nil {
		n.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrAlreadyInGame, err)
	}
	inv.transition(api.InvitationStatusAccepted)
	delete(n.invitations, invitationID)
	n.mu.Unlock()

	for _, pair := range [][2]string{{inv.SenderID, inv.RecipientID}, {inv.RecipientID, inv.SenderID}} {
		n.send(ctx, pair[0], api.NewResponse(api.ResponseTypeInviteAccepted, api.InviteAcceptedResponseData{
			InvitationID:  inv.ID,
			GameSessionID: gameSessionID,
			OpponentID:    pair[1],
			Level:         inv.Level,
		}))
	}

	return nil
}

func (n *Negotiator) rejected(ctx context.Context, inv *Invitation) {
	name, err := n.profiles.DisplayName(ctx, inv.RecipientID)
	if err != nil || name == "" {
		slog.WarnContext(ctx, "resolve recipient name",
			slog.String("user_id", inv.RecipientID),
			slog.Any("error", err))
		name = PlaceholderName
	}
	n.send(ctx, inv.SenderID, api.NewResponse(api.ResponseTypeInviteRejected, api.InviteRejectedResponseData{
		InvitationID:  inv.ID,
		RecipientName: name,
	}))
}

// expire runs when an invitation timer fires. It is a no-op if the
// invitation was resolved in the meantime.
func (n *Negotiator) expire(invitationID string) {
	n.mu.Lock()
	inv, ok := n.invitations[invitationID]
	if !ok || !inv.transition(api.InvitationStatusExpired) {
		n.mu.Unlock()
		return
	}
	delete(n.invitations, invitationID)
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	slog.InfoContext(ctx, "invitation expired",
		slog.String("invitation_id", invitationID),
		slog.String("sender_id", inv.SenderID),
		slog.String("recipient_id", inv.RecipientID))

	n.dismiss(ctx, inv)
}

// dismiss tells the sender why nothing happened and silently retracts
// the prompt on the recipient side.
func (n *Negotiator) dismiss(ctx context.Context, inv *Invitation) {
	ref := api.InvitationRefResponseData{InvitationID: inv.ID}
	n.send(ctx, inv.SenderID, api.NewResponse(api.ResponseTypeInviteExpired, ref))
	if n.presence.IsOnline(inv.RecipientID) {
		n.send(ctx, inv.RecipientID, api.NewResponse(api.ResponseTypeInviteAutoDismiss, ref))
	}
}

// CancelFor expires every pending invitation involving a disconnected
// user and notifies the remaining party.
func (n *Negotiator) CancelFor(ctx context.Context, userID string) int {
	n.mu.Lock()
	var cancelled []*Invitation
	for id, inv := range n.invitations {
		if !inv.involves(userID) || !inv.transition(api.InvitationStatusExpired) {
			continue
		}
		delete(n.invitations, id)
		cancelled = append(cancelled, inv)
	}
	n.mu.Unlock()

	for _, inv := range cancelled {
		if inv.SenderID == userID {
			n.send(ctx, inv.RecipientID, api.NewResponse(api.ResponseTypeInviteAutoDismiss,
				api.InvitationRefResponseData{InvitationID: inv.ID}))
		} else {
			n.send(ctx, inv.SenderID, api.NewResponse(api.ResponseTypeInviteExpired,
				api.InvitationRefResponseData{InvitationID: inv.ID}))
		}
	}

	return len(cancelled)
}

// Get returns a pending invitation by id.
func (n *Negotiator) Get(invitationID string) (api.InvitationData, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	inv, ok := n.invitations[invitationID]
	if !ok {
		return api.InvitationData{}, false
	}
	return inv.toAPI(), true
}

// Len returns the number of pending invitations.
func (n *Negotiator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.invitations)
}

func (n *Negotiator) send(ctx context.Context, userID string, res any) {
	if err := n.presence.Send(ctx, userID, res); err != nil {
		slog.WarnContext(ctx, "invite event write",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}
