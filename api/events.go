package api

import (
	"sort"
	"strings"
	"time"
)

// ValidationError lists the invalid fields of an inbound payload.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

type fieldCheck struct {
	fields map[string]string
}

func (c *fieldCheck) required(name, value string) {
	if strings.TrimSpace(value) == "" {
		c.invalid(name, "required")
	}
}

func (c *fieldCheck) set(name string, present bool) {
	if !present {
		c.invalid(name, "required")
	}
}

func (c *fieldCheck) invalid(name, reason string) {
	if c.fields == nil {
		c.fields = map[string]string{}
	}
	c.fields[name] = reason
}

func (c *fieldCheck) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return ValidationError{Fields: c.fields}
}

type JoinRequestData struct {
	UserID string `json:"userId"`
}

func (d *JoinRequestData) Validate() error {
	c := fieldCheck{}
	c.required("userId", d.UserID)
	return c.err()
}

type CheckOnlineStatusRequestData struct {
	UserID string `json:"userId"`
}

func (d *CheckOnlineStatusRequestData) Validate() error {
	c := fieldCheck{}
	c.required("userId", d.UserID)
	return c.err()
}

type MessageReadRequestData struct {
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
	SenderID  string `json:"senderId"`
}

func (d *MessageReadRequestData) Validate() error {
	c := fieldCheck{}
	c.required("messageId", d.MessageID)
	c.required("readerId", d.ReaderID)
	c.required("senderId", d.SenderID)
	return c.err()
}

type SendGameInviteRequestData struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	// Level defaults to 1 when absent.
	Level *int `json:"level,omitempty"`
}

func (d *SendGameInviteRequestData) Validate() error {
	c := fieldCheck{}
	c.required("senderId", d.SenderID)
	c.required("recipientId", d.RecipientID)
	if d.Level != nil && *d.Level < 1 {
		c.invalid("level", "must be greater or equal to 1")
	}
	return c.err()
}

type RespondToInviteRequestData struct {
	InvitationID string `json:"invitationId"`
	RecipientID  string `json:"recipientId"`
	Accepted     *bool  `json:"accepted"`
}

func (d *RespondToInviteRequestData) Validate() error {
	c := fieldCheck{}
	c.required("invitationId", d.InvitationID)
	c.required("recipientId", d.RecipientID)
	c.set("accepted", d.Accepted != nil)
	return c.err()
}

type SubmitAnswerRequestData struct {
	GameSessionID string `json:"gameSessionId"`
	QuestionIndex *int   `json:"questionIndex"`
	UserID        string `json:"userId"`
	AnswerText    string `json:"answerText"`
}

func (d *SubmitAnswerRequestData) Validate() error {
	c := fieldCheck{}
	c.required("gameSessionId", d.GameSessionID)
	c.set("questionIndex", d.QuestionIndex != nil)
	c.required("userId", d.UserID)
	if d.QuestionIndex != nil && *d.QuestionIndex < 0 {
		c.invalid("questionIndex", "must not be negative")
	}
	return c.err()
}

type ManualGameEndRequestData struct {
	GameSessionID string `json:"gameSessionId"`
	UserID        string `json:"userId"`
}

func (d *ManualGameEndRequestData) Validate() error {
	c := fieldCheck{}
	c.required("gameSessionId", d.GameSessionID)
	c.required("userId", d.UserID)
	return c.err()
}

type LeaveGameSessionRequestData struct {
	UserID        string `json:"userId"`
	GameSessionID string `json:"gameSessionId"`
}

func (d *LeaveGameSessionRequestData) Validate() error {
	c := fieldCheck{}
	c.required("userId", d.UserID)
	c.required("gameSessionId", d.GameSessionID)
	return c.err()
}

type UserPresenceResponseData struct {
	UserID string `json:"userId"`
}

type OnlineStatusResponseData struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type MessageReadUpdateResponseData struct {
	MessageID string `json:"messageId"`
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// InvitationData is the invitation object carried by receiveGameInvite
// and inviteSent.
type InvitationData struct {
	InvitationID string           `json:"invitationId"`
	SenderID     string           `json:"senderId"`
	SenderName   string           `json:"senderName"`
	RecipientID  string           `json:"recipientId"`
	Status       InvitationStatus `json:"status"`
	Level        int              `json:"level"`
	CreatedAt    time.Time        `json:"createdAt"`
	ExpiresAt    time.Time        `json:"expiresAt"`
}

type InviteErrorResponseData struct {
	Code        WebsocketErrorCode `json:"code"`
	Error       string             `json:"error"`
	RecipientID string             `json:"recipientId,omitempty"`
}

type InvitationRefResponseData struct {
	InvitationID string `json:"invitationId"`
}

type InviteAcceptedResponseData struct {
	InvitationID  string `json:"invitationId"`
	GameSessionID string `json:"gameSessionId"`
	OpponentID    string `json:"opponentId"`
	Level         int    `json:"level"`
}

type InviteRejectedResponseData struct {
	InvitationID  string `json:"invitationId"`
	RecipientName string `json:"recipientName"`
}

type BothAnswersReceivedResponseData struct {
	GameSessionID  string `json:"gameSessionId"`
	QuestionIndex  int    `json:"questionIndex"`
	UserID         string `json:"userId"`
	YourAnswer     string `json:"yourAnswer"`
	OpponentAnswer string `json:"opponentAnswer"`
}

type OpponentDisconnectedResponseData struct {
	GameSessionID string `json:"gameSessionId"`
	OpponentID    string `json:"opponentId"`
	Manual        bool   `json:"manual"`
}

type GameEndedResponseData struct {
	UserID        string `json:"userId"`
	GameSessionID string `json:"gameSessionId"`
}
