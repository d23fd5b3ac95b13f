// Package simulator implements a stand-in Sol backend over websocket. It
// answers the routes the SDK speaks with synthetic telemetry, which is
// enough to develop and test against without a physical SolMate.
package simulator

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type account struct {
	passwordHash string
	online       bool
	signatures   map[string]bool
	settings     injectionSettings
}

type injectionSettings struct {
	UserMaximumInjection   float64 `json:"user_maximum_injection"`
	UserMinimumInjection   float64 `json:"user_minimum_injection"`
	UserMinimumBatteryPerc float64 `json:"user_minimum_battery_percentage"`
}

// Simulator holds the account table and implements http.Handler by
// upgrading each request to a websocket session.
type Simulator struct {
	mu       sync.Mutex
	accounts map[string]*account
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New returns an empty simulator. Register devices with AddSolMate.
func New(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		accounts: make(map[string]*account),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// AddSolMate registers a device with its login password and marks it
// online.
func (s *Simulator) AddSolMate(serialnum, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[serialnum] = &account{
		passwordHash: hashPassword(password),
		online:       true,
		signatures:   make(map[string]bool),
		settings: injectionSettings{
			UserMaximumInjection:   800,
			UserMinimumInjection:   0,
			UserMinimumBatteryPerc: 20,
		},
	}
}

// SetOnline flips the reachability flag reported by check_online.
func (s *Simulator) SetOnline(serialnum string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[serialnum]; ok {
		acc.online = online
	}
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer ws.Close()

	sess := &session{}
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			ID    int64           `json:"id"`
			Route string          `json:"route"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			s.logger.Warn("bad frame", "remote", r.RemoteAddr, "err", err)
			continue
		}
		data, rerr := s.handle(sess, req.Route, req.Data)
		rep := map[string]any{"id": req.ID}
		if rerr != "" {
			rep["error"] = rerr
		} else {
			rep["data"] = data
		}
		if err := ws.WriteJSON(rep); err != nil {
			return
		}
	}
}

// session tracks per-connection authentication state.
type session struct {
	authenticated bool
	serialnum     string
}

func (s *Simulator) handle(sess *session, route string, data json.RawMessage) (any, string) {
	switch route {
	case "login":
		return s.handleLogin(data)
	case "authenticate":
		return s.handleAuthenticate(sess, data)
	case "check_online":
		var in struct {
			SerialNum string `json:"serial_num"`
		}
		_ = json.Unmarshal(data, &in)
		s.mu.Lock()
		acc := s.accounts[in.SerialNum]
		s.mu.Unlock()
		return map[string]any{"online": acc != nil && acc.online}, ""
	}

	// everything below is a protected route
	if !sess.authenticated {
		return nil, "not authenticated"
	}
	s.mu.Lock()
	acc := s.accounts[sess.serialnum]
	s.mu.Unlock()
	if acc == nil {
		return nil, "unknown serial number"
	}

	switch route {
	case "live_values":
		return liveValues(), ""
	case "get_solmate_info":
		return map[string]any{
			"version":   "1.8.0",
			"timestamp": time.Now().Format("2006-01-02T15:04:05"),
		}, ""
	case "get_grid_mode":
		return map[string]any{"mode": "ongrid"}, ""
	case "get_user_settings", "get_injection_settings":
		s.mu.Lock()
		set := acc.settings
		s.mu.Unlock()
		return set, ""
	case "set_user_maximum_injection":
		return s.updateSettings(acc, data, func(set *injectionSettings, v float64) { set.UserMaximumInjection = v }, "injection")
	case "set_user_minimum_injection":
		return s.updateSettings(acc, data, func(set *injectionSettings, v float64) { set.UserMinimumInjection = v }, "injection")
	case "set_user_minimum_battery_percentage":
		return s.updateSettings(acc, data, func(set *injectionSettings, v float64) { set.UserMinimumBatteryPerc = v }, "battery_percentage")
	case "logs":
		return map[string]any{"logs": []any{}}, ""
	case "milestones_savings":
		var in struct {
			Days int `json:"days"`
		}
		_ = json.Unmarshal(data, &in)
		if in.Days <= 0 {
			in.Days = 1
		}
		return map[string]any{"days": in.Days, "savings": float64(in.Days) * 1.37}, ""
	case "revert_to_ap", "connect_to_wifi":
		return map[string]any{"success": true}, ""
	case "list_wifis":
		return map[string]any{"ssids": []string{"EET-Office", "sun2plug-guest"}}, ""
	default:
		return nil, "unknown route " + route
	}
}

func (s *Simulator) handleLogin(data json.RawMessage) (any, string) {
	var in struct {
		SerialNum        string `json:"serial_num"`
		UserPasswordHash string `json:"user_password_hash"`
		DeviceID         string `json:"device_id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, "malformed login request"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[in.SerialNum]
	if acc == nil || acc.passwordHash != in.UserPasswordHash {
		return nil, "invalid credentials"
	}
	sig := uuid.NewString()
	acc.signatures[sig] = true
	return map[string]any{"signature": sig}, ""
}

func (s *Simulator) handleAuthenticate(sess *session, data json.RawMessage) (any, string) {
	var in struct {
		SerialNum string `json:"serial_num"`
		Signature string `json:"signature"`
		DeviceID  string `json:"device_id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, "malformed authenticate request"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[in.SerialNum]
	if acc == nil || !acc.signatures[in.Signature] {
		return nil, "invalid signature"
	}
	sess.authenticated = true
	sess.serialnum = in.SerialNum
	return map[string]any{"authenticated": true}, ""
}

func (s *Simulator) updateSettings(acc *account, data json.RawMessage, apply func(*injectionSettings, float64), field string) (any, string) {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, "malformed request"
	}
	v, ok := in[field]
	if !ok {
		return nil, "missing " + field
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&acc.settings, v)
	return acc.settings, ""
}

// liveValues produces a synthetic telemetry snapshot, jittered so repeated
// polls look alive.
func liveValues() map[string]any {
	jitter := func(base, spread float64) float64 {
		return base + (rand.Float64()-0.5)*spread
	}
	return map[string]any{
		"pv_power":      jitter(1000, 80),
		"battery_flow":  jitter(-120, 40),
		"inject_power":  jitter(480, 60),
		"battery_state": jitter(62, 2),
		"temperature":   jitter(31, 1),
	}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}
