package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/auth"
	"pairquiz-backend/internal/config"
	"pairquiz-backend/internal/duel"
	errs "pairquiz-backend/internal/errors"
	"pairquiz-backend/internal/invite"
	"pairquiz-backend/internal/middleware"
	"pairquiz-backend/internal/presence"
	"pairquiz-backend/internal/rate"
	"pairquiz-backend/internal/receipt"
	"pairquiz-backend/internal/telemetry"
	"pairquiz-backend/internal/websocket"

	"github.com/benbjohnson/clock"
	coderws "github.com/coder/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const requestTimeout = 5 * time.Second

// Components groups the realtime state served over the websocket.
type Components struct {
	Registry   *presence.Registry
	Negotiator *invite.Negotiator
	Sessions   *duel.Sessions
	Answers    *duel.Answers
	Receipts   *receipt.Tracker
}

// NewComponents wires the realtime components together. Buffered answers
// of a session are discarded once it ends and answers arriving after
// the end are dropped.
func NewComponents(cfg config.Config, profiles invite.Profiles, messages receipt.MessageStore, clk clock.Clock) Components {
	registry := presence.NewRegistry()
	sessions := duel.NewSessions(registry)
	answers := duel.NewAnswers(registry)
	answers.Bound = sessions.Bound
	sessions.OnEnd = answers.Discard

	return Components{
		Registry: registry,
		Negotiator: invite.NewNegotiator(registry, sessions, profiles, invite.Options{
			Timeout: cfg.Invite.Timeout,
			Clock:   clk,
		}),
		Sessions: sessions,
		Answers:  answers,
		Receipts: receipt.NewTracker(messages, registry),
	}
}

// DuelHandler serves the realtime socket.
type DuelHandler struct {
	cfg        config.Config
	c          Components
	tokens     *auth.Tokens
	acceptOpts coderws.AcceptOptions
	tracer     trace.Tracer
}

func NewDuelHandler(cfg config.Config, c Components, tokens *auth.Tokens) *DuelHandler {
	acceptOpts := coderws.AcceptOptions{
		Subprotocols: []string{"json"},
	}
	if cfg.Debug {
		acceptOpts.InsecureSkipVerify = true
	}
	return &DuelHandler{
		cfg:        cfg,
		c:          c,
		tokens:     tokens,
		acceptOpts: acceptOpts,
		tracer:     telemetry.Tracer(),
	}
}

// connState is the per connection state of the read loop.
type connState struct {
	conn *websocket.Conn
	// tokenUserID is the user the bearer token was issued to, if any.
	tokenUserID string
}

func (h *DuelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := &connState{}

	if h.tokens.Enabled() {
		token, err := auth.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			errs.WriteHTTPError(ctx, w, errs.UnauthorizedError(err.Error()))
			return
		}
		userID, err := h.tokens.CheckToken(token)
		if err != nil {
			errs.WriteHTTPError(ctx, w, errs.InvalidTokenError(err))
			return
		}
		state.tokenUserID = userID
	}

	conn, err := websocket.Accept(w, r, websocket.Options{
		AcceptOptions: h.acceptOpts,
		ReadLimit:     h.cfg.Websocket.ReadLimit,
		WriteTimeout:  h.cfg.Websocket.WriteTimeout,
	})
	if err != nil {
		// Accept already writes a status code and error message.
		slog.ErrorContext(ctx, "websocket accept", slog.Any("error", err))
		return
	}
	state.conn = conn

	slog.InfoContext(ctx, "websocket connected",
		slog.String("conn_id", conn.ID()),
		slog.String("request_id", middleware.GetRequestID(ctx)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go ping(ctx, conn, h.cfg.Websocket.PingInterval) // Detect timed out connection.
	defer h.handleDisconnect(ctx, conn)

	limiter := rate.NewLimiter(rate.Options{
		Window: h.cfg.Rate.Window,
		Limit:  h.cfg.Rate.Limit,
	})

	for {
		req := api.Request[json.RawMessage]{}
		if err := conn.ReadJSON(ctx, &req); err != nil {
			decodeErr := &websocket.DecodeError{}
			if errors.As(err, &decodeErr) {
				timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
				errs.WriteWebsocketError(timeoutCtx, conn, errs.InvalidRequestError(err, api.RequestTypeUnknown, "could not decode websocket frame"))
				cancel()
				continue
			}
			if coderws.CloseStatus(err) == -1 {
				slog.WarnContext(ctx, "websocket read", slog.String("conn_id", conn.ID()), slog.Any("error", err))
			}
			return
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		if !limiter.Allow() {
			errs.WriteWebsocketError(timeoutCtx, conn, errs.RateLimitedError(req.Type, limiter.RetryAfter()))
		} else {
			h.dispatch(timeoutCtx, state, req)
		}
		cancel()
	}
}

func (h *DuelHandler) dispatch(ctx context.Context, state *connState, req api.Request[json.RawMessage]) {
	ctx, span := h.tracer.Start(ctx, "ws."+string(req.Type), trace.WithAttributes(
		attribute.String("ws.conn_id", state.conn.ID()),
	))
	defer span.End()

	switch req.Type {
	case api.RequestTypeJoin:
		h.handleJoin(ctx, state, req.Data)
	case api.RequestTypeCheckOnlineStatus:
		h.handleCheckOnlineStatus(ctx, state, req.Data)
	case api.RequestTypeMessageRead:
		h.handleMessageRead(ctx, state, req.Data)
	case api.RequestTypeSendGameInvite:
		h.handleSendGameInvite(ctx, state, req.Data)
	case api.RequestTypeRespondToInvite:
		h.handleRespondToInvite(ctx, state, req.Data)
	case api.RequestTypeSubmitAnswer:
		h.handleSubmitAnswer(ctx, state, req.Data)
	case api.RequestTypeManualGameEnd:
		h.handleManualGameEnd(ctx, state, req.Data)
	case api.RequestTypeLeaveGameSession:
		h.handleLeaveGameSession(ctx, state, req.Data)
	default:
		span.SetStatus(codes.Error, "unknown request")
		err := errors.New("unknown request: " + string(req.Type))
		errs.WriteWebsocketError(ctx, state.conn, errs.InvalidRequestError(err, api.RequestTypeUnknown, err.Error()))
	}
}

// actor returns the user joined on the connection if it matches the user
// the request acts for.
func (h *DuelHandler) actor(state *connState, req api.RequestType, userID string) (string, error) {
	joined, ok := h.c.Registry.UserByConn(state.conn)
	if !ok {
		return "", errs.NotJoinedError(req)
	}
	if joined != userID {
		return "", errs.UnauthorizedRequestError(req, "user id does not match joined user")
	}
	return joined, nil
}

// handleDisconnect unbinds the connection and cascades the departure to
// pending invitations and the active game session.
func (h *DuelHandler) handleDisconnect(ctx context.Context, conn *websocket.Conn) {
	_ = conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
	defer cancel()

	h.leave(ctx, conn)
}

func (h *DuelHandler) leave(ctx context.Context, conn presence.Conn) {
	userID, ok := h.c.Registry.Leave(ctx, conn)
	if !ok {
		// Conn never joined or was superseded by a newer one.
		return
	}

	cancelled := h.c.Negotiator.CancelFor(ctx, userID)
	gameSessionID, ended := h.c.Sessions.EndOnDisconnect(ctx, userID)

	slog.InfoContext(ctx, "user disconnected",
		slog.String("user_id", userID),
		slog.Int("cancelled_invites", cancelled),
		slog.Bool("ended_game", ended),
		slog.String("game_session_id", gameSessionID))
}

func ping(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			timeoutCtx, cancel := context.WithTimeout(ctx, 2*interval)
			err := conn.Ping(timeoutCtx)
			cancel()
			if err != nil {
				slog.Debug("ping failed, closing conn",
					slog.String("conn_id", conn.ID()),
					slog.Any("error", err))
				_ = conn.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
