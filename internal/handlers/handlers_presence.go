package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"pairquiz-backend/api"
	errs "pairquiz-backend/internal/errors"
)

func (h *DuelHandler) handleJoin(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.JoinRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeJoin))
		return
	}

	if state.tokenUserID != "" && state.tokenUserID != req.UserID {
		errs.WriteWebsocketError(ctx, state.conn, errs.UnauthorizedRequestError(api.RequestTypeJoin, "token was issued to another user"))
		return
	}

	// Joining as someone else first releases the previous identity.
	if previous, ok := h.c.Registry.UserByConn(state.conn); ok && previous != req.UserID {
		h.leave(ctx, state.conn)
	}

	if err := h.c.Registry.Join(ctx, req.UserID, state.conn); err != nil {
		slog.Error("join broadcast",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	}

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeJoin)),
		slog.String("user_id", req.UserID))
}

func (h *DuelHandler) handleCheckOnlineStatus(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.CheckOnlineStatusRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeCheckOnlineStatus))
		return
	}

	res := api.NewResponse(api.ResponseTypeOnlineStatusResponse, api.OnlineStatusResponseData{
		UserID:   req.UserID,
		IsOnline: h.c.Registry.IsOnline(req.UserID),
	})
	if err := state.conn.WriteJSON(ctx, res); err != nil {
		slog.Error("online status response write",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	}
}

// handleMessageRead is fire and forget: failures are logged, never answered.
func (h *DuelHandler) handleMessageRead(ctx context.Context, state *connState, data json.RawMessage) {
	req := api.MessageReadRequestData{}
	if err := json.Unmarshal(data, &req); err != nil {
		slog.WarnContext(ctx, "message read dropped", slog.Any("error", err))
		return
	}

	if joined, ok := h.c.Registry.UserByConn(state.conn); !ok || joined != req.ReaderID {
		slog.WarnContext(ctx, "message read dropped",
			slog.String("reader_id", req.ReaderID),
			slog.String("joined_user_id", joined))
		return
	}

	h.c.Receipts.MarkRead(ctx, req)
}
