package solmate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// request is the wire format for outbound messages.
type request struct {
	ID    int64  `json:"id"`
	Route string `json:"route"`
	Data  any    `json:"data"`
}

// reply is the wire format for inbound messages. Error is either a plain
// string or an object; it is kept raw and stringified on demand.
type reply struct {
	ID    int64           `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// Conn is the underlying request/reply connection to a Sol endpoint.
// Requests are serialized: exactly one is in flight at any time, and the
// next inbound message is matched against it by id. Overlapping calls from
// multiple goroutines simply queue on the internal mutex.
type Conn struct {
	mu      sync.Mutex
	ws      *websocket.Conn
	nextID  int64
	timeout time.Duration
}

func newConn(ws *websocket.Conn, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Conn{ws: ws, timeout: timeout}
}

// Request sends one message and waits for its correlated reply, returning
// the raw data payload. The context deadline bounds both the write and the
// read; without one the connection's default timeout applies.
func (c *Conn) Request(ctx context.Context, route string, data any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, route, err)
	}

	c.nextID++
	req := request{ID: c.nextID, Route: route, Data: data}
	if req.Data == nil {
		req.Data = struct{}{}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("%w: send %s: %v", ErrConnection, route, err)
	}

	_ = c.ws.SetReadDeadline(deadline)
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: recv %s: %v", ErrConnection, route, err)
	}

	var rep reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("%w: decode reply for %s: %v", ErrProtocol, route, err)
	}
	if len(rep.Error) > 0 && string(rep.Error) != "null" {
		return nil, &RequestError{Route: route, Message: errorText(rep.Error)}
	}
	if rep.ID != req.ID {
		return nil, fmt.Errorf("%w: reply id %d does not match request id %d", ErrProtocol, rep.ID, req.ID)
	}
	if len(rep.Data) == 0 {
		return nil, fmt.Errorf("%w: reply for %s carries no data", ErrProtocol, route)
	}
	return rep.Data, nil
}

// Close performs a websocket close handshake and tears the socket down.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
