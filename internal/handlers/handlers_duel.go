package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"pairquiz-backend/api"
	errs "pairquiz-backend/internal/errors"
)

func (h *DuelHandler) handleSubmitAnswer(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.SubmitAnswerRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeSubmitAnswer))
		return
	}

	if _, err := h.actor(state, api.RequestTypeSubmitAnswer, req.UserID); err != nil {
		errs.WriteWebsocketError(ctx, state.conn, err)
		return
	}

	if !h.c.Sessions.Bound(req.GameSessionID, req.UserID) {
		errs.WriteWebsocketError(ctx, state.conn, errs.NotInSessionError(api.RequestTypeSubmitAnswer, req.UserID, req.GameSessionID))
		return
	}

	delivered := h.c.Answers.Submit(ctx, req.GameSessionID, *req.QuestionIndex, req.UserID, req.AnswerText)

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeSubmitAnswer)),
		slog.String("game_session_id", req.GameSessionID),
		slog.Int("question_index", *req.QuestionIndex),
		slog.Bool("delivered", delivered))
}

func (h *DuelHandler) handleManualGameEnd(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.ManualGameEndRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeManualGameEnd))
		return
	}

	if _, err := h.actor(state, api.RequestTypeManualGameEnd, req.UserID); err != nil {
		errs.WriteWebsocketError(ctx, state.conn, err)
		return
	}

	h.c.Sessions.EndManually(ctx, req.GameSessionID, req.UserID)

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeManualGameEnd)),
		slog.String("game_session_id", req.GameSessionID))
}

func (h *DuelHandler) handleLeaveGameSession(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.LeaveGameSessionRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeLeaveGameSession))
		return
	}

	if _, err := h.actor(state, api.RequestTypeLeaveGameSession, req.UserID); err != nil {
		errs.WriteWebsocketError(ctx, state.conn, err)
		return
	}

	left := h.c.Sessions.Leave(req.UserID, req.GameSessionID)

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeLeaveGameSession)),
		slog.String("game_session_id", req.GameSessionID),
		slog.Bool("left", left))
}
