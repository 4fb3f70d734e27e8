// Package client speaks the duel websocket protocol from the user side.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pairquiz-backend/api"

	"github.com/gorilla/websocket"
)

type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func NewClient(conn *websocket.Conn, timeout time.Duration) *Client {
	return &Client{
		conn:    conn,
		timeout: timeout,
	}
}

// Dial opens a connection to url. A non-empty token is smuggled in the
// websocket subprotocols as a bearer token.
func Dial(ctx context.Context, url, token string, timeout time.Duration) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Sec-WebSocket-Protocol", "json, Bearer "+token)
	}
	conn, res, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, res.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	_ = res.Body.Close()
	return NewClient(conn, timeout), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(typ api.RequestType, data any) error {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(api.Request[any]{Type: typ, Data: data})
}

// SendRaw writes a frame as is.
func (c *Client) SendRaw(frame []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// ReadEvent blocks until the next server event.
func (c *Client) ReadEvent() (api.Response[json.RawMessage], error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return api.Response[json.RawMessage]{}, err
		}
	}
	res := api.Response[json.RawMessage]{}
	err := c.conn.ReadJSON(&res)
	return res, err
}

// ReadUntil discards events until one of type typ is read.
func (c *Client) ReadUntil(typ api.ResponseType) (api.Response[json.RawMessage], error) {
	for {
		res, err := c.ReadEvent()
		if err != nil {
			return res, err
		}
		if res.Type == typ {
			return res, nil
		}
	}
}

// ReadData reads until an event of type typ and decodes its payload.
func ReadData[T any](c *Client, typ api.ResponseType) (T, error) {
	var data T
	res, err := c.ReadUntil(typ)
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(res.Data, &data)
	return data, err
}

func (c *Client) Join(userID string) error {
	return c.send(api.RequestTypeJoin, api.JoinRequestData{UserID: userID})
}

func (c *Client) CheckOnlineStatus(userID string) error {
	return c.send(api.RequestTypeCheckOnlineStatus, api.CheckOnlineStatusRequestData{UserID: userID})
}

func (c *Client) MessageRead(messageID, readerID, senderID string) error {
	return c.send(api.RequestTypeMessageRead, api.MessageReadRequestData{
		MessageID: messageID,
		ReaderID:  readerID,
		SenderID:  senderID,
	})
}

func (c *Client) SendGameInvite(senderID, recipientID string, level int) error {
	return c.send(api.RequestTypeSendGameInvite, api.SendGameInviteRequestData{
		SenderID:    senderID,
		RecipientID: recipientID,
		Level:       &level,
	})
}

func (c *Client) RespondToInvite(invitationID, recipientID string, accepted bool) error {
	return c.send(api.RequestTypeRespondToInvite, api.RespondToInviteRequestData{
		InvitationID: invitationID,
		RecipientID:  recipientID,
		Accepted:     &accepted,
	})
}

func (c *Client) SubmitAnswer(gameSessionID string, questionIndex int, userID, answer string) error {
	return c.send(api.RequestTypeSubmitAnswer, api.SubmitAnswerRequestData{
		GameSessionID: gameSessionID,
		QuestionIndex: &questionIndex,
		UserID:        userID,
		AnswerText:    answer,
	})
}

func (c *Client) ManualGameEnd(gameSessionID, userID string) error {
	return c.send(api.RequestTypeManualGameEnd, api.ManualGameEndRequestData{
		GameSessionID: gameSessionID,
		UserID:        userID,
	})
}

func (c *Client) LeaveGameSession(userID, gameSessionID string) error {
	return c.send(api.RequestTypeLeaveGameSession, api.LeaveGameSessionRequestData{
		UserID:        userID,
		GameSessionID: gameSessionID,
	})
}
