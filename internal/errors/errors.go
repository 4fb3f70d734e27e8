package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pairquiz-backend/api"
)

// JSONWriter is implemented by connections able to send a JSON event.
type JSONWriter interface {
	WriteJSON(ctx context.Context, v any) error
}

var errorCodeHTTPStatusCode = map[api.HTTPErrorCode]int{
	api.MissingURLQueryHTTPCode:     http.StatusBadRequest,
	api.InternalServerErrorHTTPCode: http.StatusInternalServerError,
	api.InvalidTokenErrorHTTPCode:   http.StatusForbidden,
	api.InvalidTokenClaimHTTPCode:   http.StatusForbidden,
	api.UnauthorizedErrorHTTPCode:   http.StatusUnauthorized,
	api.InvalidBodyHTTPCode:         http.StatusBadRequest,
	api.ResultExistsHTTPCode:        http.StatusConflict,
	api.IncompleteResultsHTTPCode:   http.StatusBadRequest,
}

func WriteHTTPError(ctx context.Context, w http.ResponseWriter, err error) {
	res := api.HTTPErrorData{}
	statusCode := http.StatusInternalServerError

	apiErr := &api.ErrorData[api.HTTPErrorCode]{}
	if err != nil && errors.As(err, apiErr) {
		res.Code = apiErr.Code
		res.Message = apiErr.Message
		res.Extra = apiErr.Extra
		if code, ok := errorCodeHTTPStatusCode[apiErr.Code]; ok {
			statusCode = code
		}
	} else {
		res.Code = api.InternalServerErrorHTTPCode
		res.Message = "unexpected error"
	}

	slog.ErrorContext(ctx, "http error",
		slog.Any("error", err),
		slog.Any("error_code", res.Code),
		slog.Int("status_code", statusCode))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.ErrorContext(ctx, "http error: failed to encode response", slog.Any("error", err))
	}
}

func WriteWebsocketError(ctx context.Context, conn JSONWriter, err error) {
	res := api.Response[api.WebsocketErrorData]{
		Type: api.ResponseTypeError,
	}

	apiErr := &api.ErrorData[api.WebsocketErrorCode]{}
	if err != nil && errors.As(err, apiErr) {
		res.Data.Request = apiErr.Request
		res.Data.Code = apiErr.Code
		res.Data.Message = apiErr.Message
		res.Data.Extra = apiErr.Extra
	} else {
		res.Data.Code = api.InternalServerErrorCode
		res.Data.Message = "unexpected error"
	}

	slog.ErrorContext(ctx, "ws error",
		slog.Any("error", err),
		slog.Any("error_code", res.Data.Code))

	if err := conn.WriteJSON(ctx, res); err != nil {
		slog.ErrorContext(ctx, "ws error: failed to write response", slog.Any("error", err))
	}
}

// WriteInviteError reports an invitation failure to the requester with
// the inviteError event.
func WriteInviteError(ctx context.Context, conn JSONWriter, err error, recipientID string) {
	res := api.Response[api.InviteErrorResponseData]{
		Type: api.ResponseTypeInviteError,
		Data: api.InviteErrorResponseData{
			RecipientID: recipientID,
		},
	}

	apiErr := &api.ErrorData[api.WebsocketErrorCode]{}
	if err != nil && errors.As(err, apiErr) {
		res.Data.Code = apiErr.Code
		res.Data.Error = apiErr.Message
	} else {
		res.Data.Code = api.InternalServerErrorCode
		res.Data.Error = "unexpected error"
	}

	slog.WarnContext(ctx, "invite error",
		slog.Any("error", err),
		slog.Any("error_code", res.Data.Code),
		slog.String("recipient_id", recipientID))

	if err := conn.WriteJSON(ctx, res); err != nil {
		slog.ErrorContext(ctx, "invite error: failed to write response", slog.Any("error", err))
	}
}

func InvalidRequestError(err error, req api.RequestType, cause string) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.InvalidRequestCode,
		Message: "invalid request",
		Extra: struct {
			Cause string `json:"cause"`
		}{
			Cause: cause,
		},
		Err: err,
	}
}

func InputValidationError(err error, req api.RequestType, fields map[string]string) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.InvalidInputCode,
		Message: "invalid input",
		Extra:   fields,
		Err:     err,
	}
}

// DecodeError converts a payload decoding failure to the matching api error.
func DecodeError(err error, req api.RequestType) api.ErrorData[api.WebsocketErrorCode] {
	validationErr := api.ValidationError{}
	if errors.As(err, &validationErr) {
		return InputValidationError(err, req, validationErr.Fields)
	}
	return InvalidRequestError(err, req, "invalid "+string(req)+" request")
}

func UnauthorizedRequestError(req api.RequestType, cause string) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.UnauthorizedErrorCode,
		Message: "unauthorized request",
		Extra: struct {
			Cause string `json:"cause"`
		}{
			Cause: cause,
		},
	}
}

func InternalServerError(err error, req api.RequestType) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.InternalServerErrorCode,
		Message: "internal server error",
		Err:     err,
	}
}

func RateLimitedError(req api.RequestType, retryAfter time.Duration) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.RateLimitedCode,
		Message: "too many requests",
		Extra: struct {
			RetryAfterMs int64 `json:"retryAfterMs"`
		}{
			RetryAfterMs: retryAfter.Milliseconds(),
		},
	}
}

func NotJoinedError(req api.RequestType) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.NotJoinedCode,
		Message: "connection has not joined",
	}
}

func NotInSessionError(req api.RequestType, userID, gameSessionID string) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: req,
		Code:    api.NotInSessionCode,
		Message: "user is not in game session",
		Extra: struct {
			UserID        string `json:"userId"`
			GameSessionID string `json:"gameSessionId"`
		}{
			UserID:        userID,
			GameSessionID: gameSessionID,
		},
	}
}

func RecipientOfflineError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeSendGameInvite,
		Code:    api.RecipientOfflineCode,
		Message: "recipient is offline",
		Err:     err,
	}
}

func AlreadyInGameError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeSendGameInvite,
		Code:    api.AlreadyInGameCode,
		Message: "user is already in a game",
		Err:     err,
	}
}

func PendingInviteExistsError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeSendGameInvite,
		Code:    api.PendingInviteExistsCode,
		Message: "a pending invite already exists",
		Err:     err,
	}
}

func SenderNotFoundError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeSendGameInvite,
		Code:    api.SenderNotFoundCode,
		Message: "sender not found",
		Err:     err,
	}
}

func SelfInviteError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeSendGameInvite,
		Code:    api.SelfInviteCode,
		Message: "cannot invite yourself",
		Err:     err,
	}
}

func InvalidInvitationError(err error) api.ErrorData[api.WebsocketErrorCode] {
	return api.ErrorData[api.WebsocketErrorCode]{
		Request: api.RequestTypeRespondToInvite,
		Code:    api.InvalidInvitationCode,
		Message: "invalid or expired invitation",
		Err:     err,
	}
}

func MissingURLQueryError(query string) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.MissingURLQueryHTTPCode,
		Message: "missing url query",
		Extra: struct {
			Query string `json:"query"`
		}{
			Query: query,
		},
	}
}

func UnauthorizedError(cause string) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.UnauthorizedErrorHTTPCode,
		Message: "unauthorized",
		Extra: struct {
			Cause string `json:"cause"`
		}{
			Cause: cause,
		},
	}
}

func InvalidTokenError(err error) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.InvalidTokenErrorHTTPCode,
		Message: "invalid token",
		Err:     err,
	}
}

func InvalidBodyError(err error, fields map[string]string) api.ErrorData[api.HTTPErrorCode] {
	e := api.ErrorData[api.HTTPErrorCode]{
		Code:    api.InvalidBodyHTTPCode,
		Message: "invalid body",
		Err:     err,
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return e
}

func ResultExistsError(quizSessionID, userID string) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.ResultExistsHTTPCode,
		Message: "result already submitted by this user",
		Extra: struct {
			QuizSessionID string `json:"quizSessionId"`
			UserID        string `json:"userId"`
		}{
			QuizSessionID: quizSessionID,
			UserID:        userID,
		},
	}
}

func IncompleteResultsError(quizSessionID string, count int) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.IncompleteResultsHTTPCode,
		Message: "incomplete results",
		Extra: struct {
			QuizSessionID string `json:"quizSessionId"`
			Results       int    `json:"results"`
		}{
			QuizSessionID: quizSessionID,
			Results:       count,
		},
	}
}

func HTTPInternalServerError(err error) api.ErrorData[api.HTTPErrorCode] {
	return api.ErrorData[api.HTTPErrorCode]{
		Code:    api.InternalServerErrorHTTPCode,
		Message: "internal server error",
		Err:     err,
	}
}
