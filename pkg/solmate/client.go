// Package solmate is a client SDK for the Sol and SolMate websocket API.
// A Client owns one connection to the backend, identified by the serial
// number of the SolMate it targets:
//
//	client := solmate.NewClient("S1K0506...00X")
//	if err := client.Quickstart(ctx, password); err != nil { ... }
//	values, err := client.GetLiveValues(ctx)
package solmate

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultURI is the public Sol endpoint.
	DefaultURI = "wss://sol.eet.energy:9124"

	// DefaultDeviceID identifies this SDK towards the backend.
	DefaultDeviceID = "solmate-go"

	// DefaultTimeout bounds a single request/reply round trip when the
	// caller's context has no deadline of its own.
	DefaultTimeout = 30 * time.Second
)

// State is the connection lifecycle state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Client talks to one SolMate through the Sol websocket API. It is not
// safe for concurrent use; issue one call at a time and await completion.
type Client struct {
	serialnum string
	uri       string
	deviceID  string
	timeout   time.Duration
	store     *AuthStore
	dialer    *websocket.Dialer

	conn  *Conn
	state State
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithURI points the client at a different endpoint, e.g. a local SolMate.
func WithURI(uri string) Option { return func(c *Client) { c.uri = uri } }

// WithDeviceID overrides the device id sent during login/authenticate.
func WithDeviceID(id string) Option { return func(c *Client) { c.deviceID = id } }

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithAuthStore lets Quickstart reuse and persist signatures across runs.
func WithAuthStore(s *AuthStore) Option { return func(c *Client) { c.store = s } }

// WithDialer replaces the websocket dialer (proxy or TLS tweaks).
func WithDialer(d *websocket.Dialer) Option { return func(c *Client) { c.dialer = d } }

// NewClient returns a client for the SolMate with the given serial number.
// The connection is not opened yet; call Connect or Quickstart.
func NewClient(serialnum string, opts ...Option) *Client {
	c := &Client{
		serialnum: serialnum,
		uri:       DefaultURI,
		deviceID:  DefaultDeviceID,
		timeout:   DefaultTimeout,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serialnum returns the serial number of the targeted SolMate.
func (c *Client) Serialnum() string { return c.serialnum }

// State returns the current lifecycle state.
func (c *Client) State() State { return c.state }

// Token returns the signature obtained by the last successful login or
// authenticate call, or the empty string.
func (c *Client) Token() string { return c.token }

// Connect opens the websocket to the configured endpoint.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return fmt.Errorf("%w: already connected", ErrConnection)
	}
	ws, _, err := c.dialer.DialContext(ctx, c.uri, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, c.uri, err)
	}
	c.conn = newConn(ws, c.timeout)
	c.state = StateConnected
	return nil
}

// Login derives the password hash, requests a signature from the backend
// and authenticates the connection with it. The signature is returned so
// callers can persist it; with an auth store configured it is stored
// automatically.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	res, err := c.request(ctx, "login", map[string]any{
		"serial_num":         c.serialnum,
		"user_password_hash": hashPassword(password),
		"device_id":          c.deviceID,
	})
	if err != nil {
		var rerr *RequestError
		if errors.As(err, &rerr) {
			return "", fmt.Errorf("%w: login rejected for %s: %s", ErrAuthentication, c.serialnum, rerr.Message)
		}
		return "", err
	}
	var out struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(res, &out); err != nil || out.Signature == "" {
		return "", fmt.Errorf("%w: login reply carries no signature", ErrProtocol)
	}
	if err := c.Authenticate(ctx, out.Signature); err != nil {
		return "", err
	}
	if c.store != nil {
		_ = c.store.Put(c.serialnum, out.Signature)
	}
	return out.Signature, nil
}

// Authenticate unlocks protected routes on the current connection using a
// previously obtained signature.
func (c *Client) Authenticate(ctx context.Context, token string) error {
	_, err := c.request(ctx, "authenticate", map[string]any{
		"serial_num": c.serialnum,
		"signature":  token,
		"device_id":  c.deviceID,
	})
	if err != nil {
		var rerr *RequestError
		if errors.As(err, &rerr) {
			return fmt.Errorf("%w: authenticate rejected for %s: %s", ErrAuthentication, c.serialnum, rerr.Message)
		}
		return err
	}
	c.token = token
	c.state = StateAuthenticated
	return nil
}

// Quickstart connects and authenticates in one go. A signature from the
// auth store is tried first; on rejection (or without a store) it falls
// back to a fresh login with the given password.
func (c *Client) Quickstart(ctx context.Context, password string) error {
	if c.conn == nil {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	if c.store != nil {
		if tok, ok := c.store.Get(c.serialnum); ok {
			err := c.Authenticate(ctx, tok)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrAuthentication) {
				return err
			}
			_ = c.store.Delete(c.serialnum)
		}
	}
	_, err := c.Login(ctx, password)
	return err
}

// GetLiveValues returns the current telemetry snapshot of the SolMate
// (pv power, battery state, injection). Requires authentication.
func (c *Client) GetLiveValues(ctx context.Context) (LiveValues, error) {
	res, err := c.protected(ctx, "live_values", nil)
	if err != nil {
		return nil, err
	}
	var lv LiveValues
	if err := json.Unmarshal(res, &lv); err != nil {
		return nil, fmt.Errorf("%w: decode live values: %v", ErrProtocol, err)
	}
	return lv, nil
}

// CheckOnline reports whether the SolMate is currently reachable by the
// backend. It does not require authentication.
func (c *Client) CheckOnline(ctx context.Context) (bool, error) {
	res, err := c.request(ctx, "check_online", map[string]any{"serial_num": c.serialnum})
	if err != nil {
		return false, err
	}
	var out struct {
		Online *bool `json:"online"`
	}
	if err := json.Unmarshal(res, &out); err != nil || out.Online == nil {
		return false, fmt.Errorf("%w: check_online reply carries no online flag", ErrProtocol)
	}
	return *out.Online, nil
}

// GetInfo returns device information such as the installed software
// version.
func (c *Client) GetInfo(ctx context.Context) (map[string]any, error) {
	return c.protectedMap(ctx, "get_solmate_info", nil)
}

// GetGridMode reports whether the SolMate runs on-grid or in island mode.
func (c *Client) GetGridMode(ctx context.Context) (map[string]any, error) {
	return c.protectedMap(ctx, "get_grid_mode", nil)
}

// GetUserSettings returns the user settings currently in effect.
func (c *Client) GetUserSettings(ctx context.Context) (map[string]any, error) {
	return c.protectedMap(ctx, "get_user_settings", nil)
}

// GetInjectionSettings returns the configured injection limits.
func (c *Client) GetInjectionSettings(ctx context.Context) (map[string]any, error) {
	return c.protectedMap(ctx, "get_injection_settings", nil)
}

// GetRecentLogs fetches logs for the given number of days starting at
// start. A zero start means days ago from now; days <= 0 defaults to one.
func (c *Client) GetRecentLogs(ctx context.Context, days int, start time.Time) (map[string]any, error) {
	if days <= 0 {
		days = 1
	}
	if start.IsZero() {
		start = time.Now().AddDate(0, 0, -days)
	}
	end := start.AddDate(0, 0, days)
	const layout = "2006-01-02T15:04:05"
	return c.protectedMap(ctx, "logs", map[string]any{
		"timeframes": []map[string]any{{
			"start":      start.Format(layout),
			"end":        end.Format(layout),
			"resolution": 4,
		}},
	})
}

// GetMilestonesSavings returns the savings milestones of the last days.
func (c *Client) GetMilestonesSavings(ctx context.Context, days int) (map[string]any, error) {
	if days <= 0 {
		days = 1
	}
	return c.protectedMap(ctx, "milestones_savings", map[string]any{"days": days})
}

// SetMaxInjection sets the user defined maximum injection power in watts.
func (c *Client) SetMaxInjection(ctx context.Context, watts float64) (map[string]any, error) {
	return c.protectedMap(ctx, "set_user_maximum_injection", map[string]any{"injection": watts})
}

// SetMinInjection sets the user defined minimum injection power in watts.
func (c *Client) SetMinInjection(ctx context.Context, watts float64) (map[string]any, error) {
	return c.protectedMap(ctx, "set_user_minimum_injection", map[string]any{"injection": watts})
}

// SetMinBatteryPercentage sets the battery floor the SolMate keeps charged.
func (c *Client) SetMinBatteryPercentage(ctx context.Context, percent float64) (map[string]any, error) {
	return c.protectedMap(ctx, "set_user_minimum_battery_percentage", map[string]any{"battery_percentage": percent})
}

// RevertToAP switches the SolMate back into access point mode. The current
// connection will usually drop shortly after.
func (c *Client) RevertToAP(ctx context.Context) error {
	_, err := c.protected(ctx, "revert_to_ap", nil)
	return err
}

// Close shuts the connection down and resets the client to disconnected.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.reset()
	return err
}

// request issues a raw request on the open connection. Transport failures
// reset the state machine to disconnected.
func (c *Client) request(ctx context.Context, route string, data any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("%w: not connected", ErrConnection)
	}
	res, err := c.conn.Request(ctx, route, data)
	if err != nil && errors.Is(err, ErrConnection) {
		_ = c.conn.Close()
		c.reset()
	}
	return res, err
}

// protected fails fast unless the connection has been authenticated.
func (c *Client) protected(ctx context.Context, route string, data any) (json.RawMessage, error) {
	if c.state != StateAuthenticated {
		return nil, fmt.Errorf("%w: %s requires a prior login", ErrAuthentication, route)
	}
	return c.request(ctx, route, data)
}

func (c *Client) protectedMap(ctx context.Context, route string, data any) (map[string]any, error) {
	res, err := c.protected(ctx, route, data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s reply: %v", ErrProtocol, route, err)
	}
	return out, nil
}

func (c *Client) reset() {
	c.conn = nil
	c.state = StateDisconnected
	c.token = ""
}

// hashPassword derives the wire form of a user password.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}
