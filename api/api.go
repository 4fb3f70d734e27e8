package api

import (
	"bytes"
	"encoding/json"
	"errors"
)

type RequestType string

// Inbound events, client to server.
const (
	RequestTypeUnknown           RequestType = "unknown"
	RequestTypeJoin              RequestType = "join"
	RequestTypeCheckOnlineStatus RequestType = "checkOnlineStatus"
	RequestTypeMessageRead       RequestType = "messageRead"
	RequestTypeSendGameInvite    RequestType = "sendGameInvite"
	RequestTypeRespondToInvite   RequestType = "respondToInvite"
	RequestTypeSubmitAnswer      RequestType = "submitAnswer"
	RequestTypeManualGameEnd     RequestType = "manualGameEnd"
	RequestTypeLeaveGameSession  RequestType = "leaveGameSession"
)

type ResponseType string

// Outbound events, server to client.
const (
	ResponseTypeError                ResponseType = "error"
	ResponseTypeUserOnline           ResponseType = "userOnline"
	ResponseTypeUserOffline          ResponseType = "userOffline"
	ResponseTypeOnlineUsers          ResponseType = "onlineUsers"
	ResponseTypeOnlineStatusResponse ResponseType = "onlineStatusResponse"
	ResponseTypeMessageReadUpdate    ResponseType = "messageReadUpdate"
	ResponseTypeReceiveGameInvite    ResponseType = "receiveGameInvite"
	ResponseTypeInviteSent           ResponseType = "inviteSent"
	ResponseTypeInviteError          ResponseType = "inviteError"
	ResponseTypeInviteExpired        ResponseType = "inviteExpired"
	ResponseTypeInviteAutoDismiss    ResponseType = "inviteAutoDismiss"
	ResponseTypeInviteAccepted       ResponseType = "inviteAccepted"
	ResponseTypeInviteRejected       ResponseType = "inviteRejected"
	ResponseTypeBothAnswersReceived  ResponseType = "bothAnswersReceived"
	ResponseTypeOpponentDisconnected ResponseType = "opponentDisconnected"
	ResponseTypeGameEnded            ResponseType = "gameEnded"
)

type Request[T any] struct {
	Type RequestType `json:"type"`
	Data T           `json:"data,omitempty"`
}

type Response[T any] struct {
	Type    ResponseType `json:"type"`
	Message string       `json:"message,omitempty"`
	Data    T            `json:"data,omitempty"`
}

// NewResponse wraps data in a typed event envelope.
func NewResponse[T any](typ ResponseType, data T) Response[T] {
	return Response[T]{Type: typ, Data: data}
}

// Validator is implemented by inbound payloads with required fields.
type Validator interface {
	Validate() error
}

var errEmptyData = errors.New("empty request data")

// DecodeJSON decodes a raw request payload and validates it when
// the payload type implements Validator.
func DecodeJSON[T any](data json.RawMessage) (res T, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return res, errEmptyData
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, err
	}
	if v, ok := any(&res).(Validator); ok {
		if err := v.Validate(); err != nil {
			return res, err
		}
	}
	return res, nil
}
