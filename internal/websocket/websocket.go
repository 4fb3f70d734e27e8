// Package websocket wraps a coder/websocket connection into an identified
// connection handle able to exchange JSON events.
//
// Multiple goroutines may write to a Conn simultaneously, reads must happen
// from a single goroutine.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Conn is a live client connection.
type Conn struct {
	id           string
	c            *websocket.Conn
	writeTimeout time.Duration
}

type Options struct {
	AcceptOptions websocket.AcceptOptions

	// ReadLimit sets the max size in bytes of an inbound frame.
	ReadLimit int64

	// WriteTimeout bounds every WriteJSON call. Zero disables it.
	WriteTimeout time.Duration
}

// Accept upgrades an http request to a websocket connection.
func Accept(w http.ResponseWriter, r *http.Request, opts Options) (*Conn, error) {
	c, err := websocket.Accept(w, r, &opts.AcceptOptions)
	if err != nil {
		return nil, err
	}
	if opts.ReadLimit > 0 {
		c.SetReadLimit(opts.ReadLimit)
	}
	return &Conn{
		id:           uuid.NewString(),
		c:            c,
		writeTimeout: opts.WriteTimeout,
	}, nil
}

// ID returns the unique connection id.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.c, v)
}

// DecodeError is returned by ReadJSON when a frame was received but could
// not be decoded. The connection stays usable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode frame: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errBinaryFrame = errors.New("binary frames are not supported")

// ReadJSON blocks until the next message and decodes it in v.
func (c *Conn) ReadJSON(ctx context.Context, v any) error {
	typ, b, err := c.c.Read(ctx)
	if err != nil {
		return err
	}
	if typ != websocket.MessageText {
		return &DecodeError{Err: errBinaryFrame}
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.c.Ping(ctx)
}

// Close performs the closing handshake.
func (c *Conn) Close() error {
	return c.c.Close(websocket.StatusNormalClosure, "")
}

// CloseNow closes the connection without a handshake.
func (c *Conn) CloseNow() error {
	return c.c.CloseNow()
}
