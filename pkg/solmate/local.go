package solmate

import (
	"context"
	"encoding/json"
	"fmt"
)

// LocalClient talks to a SolMate directly on the local network instead of
// going through the Sol backend. Use the device hostname, not its IP, so
// the SolMate can tell local and server access apart; it typically starts
// with "sun2plug". Some extra routes are only available locally.
type LocalClient struct {
	Client
}

// NewLocalClient returns a client for a SolMate reachable at the given
// local websocket URI, e.g. "ws://sun2plug-XXXX:9124".
func NewLocalClient(serialnum, uri string, opts ...Option) *LocalClient {
	opts = append([]Option{WithURI(uri)}, opts...)
	return &LocalClient{Client: *NewClient(serialnum, opts...)}
}

// ListWifis lists the visible, non-hidden SSIDs the SolMate can see.
func (c *LocalClient) ListWifis(ctx context.Context) ([]string, error) {
	res, err := c.protected(ctx, "list_wifis", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		SSIDs []string `json:"ssids"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("%w: decode list_wifis reply: %v", ErrProtocol, err)
	}
	return out.SSIDs, nil
}

// ConnectToWifi tells the SolMate to join another SSID. The websocket
// connection is expected to break right after; callers reconnect.
func (c *LocalClient) ConnectToWifi(ctx context.Context, ssid, password string) error {
	_, err := c.protected(ctx, "connect_to_wifi", map[string]any{
		"ssid":     ssid,
		"password": password,
	})
	return err
}

// CheckOnline has no route on the device itself: locally a SolMate is
// online exactly when the connection to it is up.
func (c *LocalClient) CheckOnline(ctx context.Context) (bool, error) {
	return c.conn != nil, nil
}
