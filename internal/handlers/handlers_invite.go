package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"pairquiz-backend/api"
	errs "pairquiz-backend/internal/errors"
	"pairquiz-backend/internal/invite"
)

func (h *DuelHandler) handleSendGameInvite(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.SendGameInviteRequestData](data)
	if err != nil {
		errs.WriteInviteError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeSendGameInvite), req.RecipientID)
		return
	}

	if _, err := h.actor(state, api.RequestTypeSendGameInvite, req.SenderID); err != nil {
		errs.WriteInviteError(ctx, state.conn, err, req.RecipientID)
		return
	}

	level := 1
	if req.Level != nil {
		level = *req.Level
	}

	inv, err := h.c.Negotiator.Send(ctx, req.SenderID, req.RecipientID, level)
	if err != nil {
		errs.WriteInviteError(ctx, state.conn, inviteError(err, api.RequestTypeSendGameInvite), req.RecipientID)
		return
	}

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeSendGameInvite)),
		slog.String("invitation_id", inv.InvitationID),
		slog.String("sender_id", inv.SenderID),
		slog.String("recipient_id", inv.RecipientID))
}

func (h *DuelHandler) handleRespondToInvite(ctx context.Context, state *connState, data json.RawMessage) {
	req, err := api.DecodeJSON[api.RespondToInviteRequestData](data)
	if err != nil {
		errs.WriteInviteError(ctx, state.conn, errs.DecodeError(err, api.RequestTypeRespondToInvite), "")
		return
	}

	if _, err := h.actor(state, api.RequestTypeRespondToInvite, req.RecipientID); err != nil {
		errs.WriteInviteError(ctx, state.conn, err, "")
		return
	}

	if err := h.c.Negotiator.Respond(ctx, req.InvitationID, req.RecipientID, *req.Accepted); err != nil {
		errs.WriteInviteError(ctx, state.conn, inviteError(err, api.RequestTypeRespondToInvite), "")
		return
	}

	slog.InfoContext(ctx, "successful request",
		slog.String("request", string(api.RequestTypeRespondToInvite)),
		slog.String("invitation_id", req.InvitationID),
		slog.Bool("accepted", *req.Accepted))
}

// inviteError maps a negotiator failure of request req to its api error.
func inviteError(err error, req api.RequestType) error {
	switch {
	case errors.Is(err, invite.ErrRecipientOffline):
		return errs.RecipientOfflineError(err)
	case errors.Is(err, invite.ErrAlreadyInGame):
		return errs.AlreadyInGameError(err)
	case errors.Is(err, invite.ErrPendingInviteExists):
		return errs.PendingInviteExistsError(err)
	case errors.Is(err, invite.ErrSenderNotFound):
		return errs.SenderNotFoundError(err)
	case errors.Is(err, invite.ErrSelfInvite):
		return errs.SelfInviteError(err)
	case errors.Is(err, invite.ErrInvalidInvitation):
		return errs.InvalidInvitationError(err)
	}
	return errs.InternalServerError(err, req)
}
