package solmate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// scriptedServer answers every inbound request with whatever the respond
// callback produces. A nil reply sends raw garbage instead.
func scriptedServer(t *testing.T, respond func(id int64, route string) map[string]any) string {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				ID    int64  `json:"id"`
				Route string `json:"route"`
			}
			if err := json.Unmarshal(raw, &req); err != nil {
				return
			}
			rep := respond(req.ID, req.Route)
			if rep == nil {
				if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
					return
				}
				continue
			}
			if err := ws.WriteJSON(rep); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialConn(t *testing.T, uri string) *Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", uri, err)
	}
	conn := newConn(ws, 5*time.Second)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRequestErrorReply(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return map[string]any{"id": id, "error": "boom"}
	})
	conn := dialConn(t, uri)

	_, err := conn.Request(context.Background(), "live_values", nil)
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if rerr.Route != "live_values" || rerr.Message != "boom" {
		t.Fatalf("unexpected RequestError: %+v", rerr)
	}
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected RequestError to unwrap to ErrProtocol, got %v", err)
	}
}

func TestRequestErrorObjectReply(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return map[string]any{"id": id, "error": map[string]any{"code": 401}}
	})
	conn := dialConn(t, uri)

	_, err := conn.Request(context.Background(), "login", nil)
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if !strings.Contains(rerr.Message, "401") {
		t.Fatalf("expected stringified error object, got %q", rerr.Message)
	}
}

func TestRequestIDMismatch(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return map[string]any{"id": id + 7, "data": map[string]any{"x": 1}}
	})
	conn := dialConn(t, uri)

	_, err := conn.Request(context.Background(), "check_online", nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol on id mismatch, got %v", err)
	}
}

func TestRequestMalformedReply(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return nil // raw garbage
	})
	conn := dialConn(t, uri)

	_, err := conn.Request(context.Background(), "check_online", nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol on malformed reply, got %v", err)
	}
}

func TestRequestEmptyData(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return map[string]any{"id": id}
	})
	conn := dialConn(t, uri)

	_, err := conn.Request(context.Background(), "check_online", nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol on missing data, got %v", err)
	}
}

func TestRequestIDsAreMonotonic(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var seen []int64
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		return map[string]any{"id": id, "data": map[string]any{}}
	})
	conn := dialConn(t, uri)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := conn.Request(ctx, "check_online", nil); err != nil {
			t.Fatalf("Request #%d failed: %v", i+1, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("expected ids 1,2,3, got %v", seen)
	}
}

func TestRequestCancelledContext(t *testing.T) {
	t.Parallel()
	uri := scriptedServer(t, func(id int64, route string) map[string]any {
		return map[string]any{"id": id, "data": map[string]any{}}
	})
	conn := dialConn(t, uri)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := conn.Request(ctx, "check_online", nil); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection for cancelled context, got %v", err)
	}
}
