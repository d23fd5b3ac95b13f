// Package collector polls live values from SolMates and hands the
// flattened readings to a configurable handler (log, files, database).
package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"solmate-sdk/pkg/solmate"
)

// Reading is one decoded telemetry value from a live-value snapshot.
// Non-numeric snapshot fields are skipped; the online check is folded in
// as field "online" with value 0 or 1.
type Reading struct {
	SerialNum string
	Name      string
	Field     string
	Value     float64
	Timestamp time.Time
}

// ResultHandler is a callback to process collected readings.
// Return an error to have it logged by the collector.
type ResultHandler func(Reading) error

// Collector polls a single SolMate.
type Collector struct {
	Cfg     SolmateConfig
	Handler ResultHandler
}

// reconnectDelay paces the outer connect loop after transport failures.
const reconnectDelay = 5 * time.Second

// Run connects, authenticates and polls until the context is cancelled.
// Transport failures trigger a reconnect; rejected credentials end the
// run, since retrying them cannot help.
func (c *Collector) Run(ctx context.Context) error {
	interval := c.Cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	for {
		client := c.newClient()
		err := client.Quickstart(ctx, c.Cfg.Password)
		if err != nil {
			if errors.Is(err, solmate.ErrAuthentication) {
				return err
			}
			slog.Warn("connect failed", "serial", c.Cfg.SerialNum, "err", err)
			select {
			case <-time.After(reconnectDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		slog.Info("connected", "serial", c.Cfg.SerialNum, "state", client.State().String())

		err = c.poll(ctx, client, interval)
		_ = client.Close()
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("connection lost, reconnecting", "serial", c.Cfg.SerialNum, "err", err)
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Collector) newClient() *solmate.Client {
	opts := []solmate.Option{solmate.WithTimeout(c.Cfg.Timeout)}
	if c.Cfg.URI != "" {
		opts = append(opts, solmate.WithURI(c.Cfg.URI))
	}
	if c.Cfg.DeviceID != "" {
		opts = append(opts, solmate.WithDeviceID(c.Cfg.DeviceID))
	}
	return solmate.NewClient(c.Cfg.SerialNum, opts...)
}

// poll runs the ticker loop on one authenticated connection. It returns
// on context cancellation or the first transport error.
func (c *Collector) poll(ctx context.Context, client *solmate.Client, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	polls := 0
	// Immediate first run
	if err := c.pollOnce(ctx, client, polls); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			polls++
			if err := c.pollOnce(ctx, client, polls); err != nil {
				return err
			}
		}
	}
}

func (c *Collector) pollOnce(ctx context.Context, client *solmate.Client, polls int) error {
	values, err := client.GetLiveValues(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for field := range values {
		v, ok := values.Float(field)
		if !ok {
			continue
		}
		c.emit(Reading{
			SerialNum: c.Cfg.SerialNum,
			Name:      c.Cfg.Name,
			Field:     field,
			Value:     v,
			Timestamp: now,
		})
	}

	if c.Cfg.OnlineEvery > 0 && polls%c.Cfg.OnlineEvery == 0 {
		online, err := client.CheckOnline(ctx)
		if err != nil {
			return err
		}
		v := 0.0
		if online {
			v = 1.0
		}
		c.emit(Reading{
			SerialNum: c.Cfg.SerialNum,
			Name:      c.Cfg.Name,
			Field:     "online",
			Value:     v,
			Timestamp: now,
		})
	}
	return nil
}

func (c *Collector) emit(r Reading) {
	if c.Handler == nil {
		return
	}
	if err := c.Handler(r); err != nil {
		slog.Warn("handler error", "serial", r.SerialNum, "field", r.Field, "err", err)
	}
}
