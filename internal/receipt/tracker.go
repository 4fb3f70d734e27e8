// Package receipt relays message read receipts to the original sender.
package receipt

import (
	"context"
	"log/slog"

	"pairquiz-backend/api"
)

// MessageStore flips the read flag of a message.
type MessageStore interface {
	// MarkRead sets read on the message identified by messageID only if
	// it was sent by senderID to receiverID and is still unread. It reports
	// whether a message was updated.
	MarkRead(ctx context.Context, messageID, senderID, receiverID string) (bool, error)
}

// Notifier routes an event to a user's live connection.
type Notifier interface {
	Send(ctx context.Context, userID string, v any) error
}

type Tracker struct {
	store    MessageStore
	notifier Notifier
}

func NewTracker(store MessageStore, notifier Notifier) *Tracker {
	return &Tracker{store: store, notifier: notifier}
}

// MarkRead records that readerID read messageID and tells senderID.
// Repeated read events for the same message notify the sender once.
//
// MarkRead never fails: invalid input and store errors are logged and
// the event is dropped.
func (t *Tracker) MarkRead(ctx context.Context, data api.MessageReadRequestData) bool {
	if err := data.Validate(); err != nil {
		slog.WarnContext(ctx, "message read dropped", slog.Any("error", err))
		return false
	}

	updated, err := t.store.MarkRead(ctx, data.MessageID, data.SenderID, data.ReaderID)
	if err != nil {
		slog.ErrorContext(ctx, "mark message read",
			slog.String("message_id", data.MessageID),
			slog.Any("error", err))
		return false
	}
	if !updated {
		return false
	}

	res := api.NewResponse(api.ResponseTypeMessageReadUpdate, api.MessageReadUpdateResponseData{
		MessageID: data.MessageID,
	})
	if err := t.notifier.Send(ctx, data.SenderID, res); err != nil {
		slog.WarnContext(ctx, "message read update write",
			slog.String("user_id", data.SenderID),
			slog.String("message_id", data.MessageID),
			slog.Any("error", err))
	}
	return true
}
