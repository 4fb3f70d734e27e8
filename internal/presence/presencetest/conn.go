// Package presencetest provides an in-memory connection recording the
// events written to it.
package presencetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"pairquiz-backend/api"
)

var ErrClosed = errors.New("conn closed")

// Conn records every JSON event written to it.
type Conn struct {
	id     string
	events []api.Response[json.RawMessage]
	closed bool
	gate   chan struct{}
	mu     sync.Mutex
}

func NewConn(id string) *Conn {
	return &Conn{id: id}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) WriteJSON(_ context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res := api.Response[json.RawMessage]{}
	if err := json.Unmarshal(b, &res); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.events = append(c.events, res)
	return nil
}

// Close blocks while the conn is held by HoldClose.
func (c *Conn) Close() error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HoldClose makes Close block like a peer that never answers the closing
// handshake, until the returned release func is called.
func (c *Conn) HoldClose() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()
	return sync.OnceFunc(func() { close(gate) })
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events returns a copy of the recorded events.
func (c *Conn) Events() []api.Response[json.RawMessage] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Response[json.RawMessage](nil), c.events...)
}

// Types returns the recorded event types in write order.
func (c *Conn) Types() []api.ResponseType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]api.ResponseType, 0, len(c.events))
	for _, e := range c.events {
		types = append(types, e.Type)
	}
	return types
}

// Filter returns the recorded events of type typ.
func (c *Conn) Filter(typ api.ResponseType) []api.Response[json.RawMessage] {
	c.mu.Lock()
	defer c.mu.Unlock()
	var events []api.Response[json.RawMessage]
	for _, e := range c.events {
		if e.Type == typ {
			events = append(events, e)
		}
	}
	return events
}

// Reset drops the recorded events.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Decode decodes the payload of a recorded event.
func Decode[T any](e api.Response[json.RawMessage]) (T, error) {
	var data T
	err := json.Unmarshal(e.Data, &data)
	return data, err
}
