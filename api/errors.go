package api

type HTTPErrorData struct {
	Code    HTTPErrorCode `json:"code"`
	Message string        `json:"message,omitempty"`
	Extra   any           `json:"extra,omitempty"`
}

type HTTPErrorCode uint8

const (
	MissingURLQueryHTTPCode     HTTPErrorCode = 101
	InternalServerErrorHTTPCode HTTPErrorCode = 102
	InvalidTokenErrorHTTPCode   HTTPErrorCode = 103
	InvalidTokenClaimHTTPCode   HTTPErrorCode = 104
	UnauthorizedErrorHTTPCode   HTTPErrorCode = 105
	InvalidBodyHTTPCode         HTTPErrorCode = 106
	ResultExistsHTTPCode        HTTPErrorCode = 107
	IncompleteResultsHTTPCode   HTTPErrorCode = 108
)

type WebsocketErrorData struct {
	Request RequestType        `json:"request,omitempty"`
	Code    WebsocketErrorCode `json:"code"`
	Message string             `json:"message,omitempty"`
	Extra   any                `json:"extra,omitempty"`
}

type WebsocketErrorCode uint8

const (
	InvalidRequestCode      WebsocketErrorCode = 201
	InvalidInputCode        WebsocketErrorCode = 202
	InternalServerErrorCode WebsocketErrorCode = 203
	UnauthorizedErrorCode   WebsocketErrorCode = 204
	RateLimitedCode         WebsocketErrorCode = 205
	NotJoinedCode           WebsocketErrorCode = 206
	NotInSessionCode        WebsocketErrorCode = 207
	RecipientOfflineCode    WebsocketErrorCode = 210
	AlreadyInGameCode       WebsocketErrorCode = 211
	PendingInviteExistsCode WebsocketErrorCode = 212
	SenderNotFoundCode      WebsocketErrorCode = 213
	InvalidInvitationCode   WebsocketErrorCode = 214
	SelfInviteCode          WebsocketErrorCode = 215
)

type ErrorCode interface {
	HTTPErrorCode | WebsocketErrorCode
}

type ErrorData[T ErrorCode] struct { //nolint: errname
	Request RequestType `json:"request,omitempty"`
	Code    T           `json:"code"`
	Message string      `json:"message,omitempty"`
	Extra   any         `json:"extra,omitempty"`
	Err     error       `json:"error,omitempty"`
}

func (e ErrorData[T]) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e ErrorData[T]) Unwrap() error {
	return e.Err
}
