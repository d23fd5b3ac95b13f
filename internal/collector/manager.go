package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"solmate-sdk/internal/utils"
)

// Manager coordinates running multiple SolMate collectors concurrently.

type Manager struct {
	Cfg     RootConfig
	OnValue ResultHandler // optional global handler
}

func (m *Manager) Run(ctx context.Context) error {
	// optional storage
	var store *Storage
	if m.Cfg.System.Storage.Enabled {
		s, err := NewStorage(
			m.Cfg.System.Storage.Path,
			m.Cfg.System.Storage.FileType,
			m.Cfg.System.Storage.MaxQueueSize,
		)
		if err != nil {
			slog.Warn("storage init failed, continuing without storage", "err", err)
		} else {
			store = s
			for _, sol := range m.Cfg.Solmates {
				if err := store.RegisterSolmate(ctx, sol); err != nil {
					slog.Warn("register solmate failed", "serial", sol.SerialNum, "err", err)
				}
			}
			// TTL cache so unchanged values are not re-written
			vc := utils.NewValueCache(m.Cfg.System.Storage.CacheTTL)
			userH := m.OnValue
			m.OnValue = func(r Reading) error {
				key := r.SerialNum + "|" + r.Field
				if old, ok := vc.GetValue(key); ok && utils.FloatsEqual(old, r.Value) {
					return nil
				}
				if userH != nil {
					if err := userH(r); err != nil {
						slog.Warn("custom handler error", "err", err)
					}
				}
				if err := store.Handle(r); err != nil {
					return err
				}
				vc.SetValue(key, r.Value)
				return nil
			}
		}
	}

	// worker limit
	maxW := m.Cfg.System.Processing.MaxWorkers
	if maxW <= 0 {
		maxW = 10
	}
	sem := make(chan struct{}, maxW)

	var wg sync.WaitGroup

	for _, sol := range m.Cfg.Solmates {
		collector := &Collector{
			Cfg:     sol,
			Handler: m.wrapHandler(),
		}

		wg.Add(1)
		go func(c *Collector) {
			defer wg.Done()
			// acquire worker slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			if err := c.Run(ctx); err != nil {
				slog.Error("collector stopped", "serial", c.Cfg.SerialNum, "err", err)
			}
		}(collector)
	}

	// wait until context done, then wait for goroutines to finish
	<-ctx.Done()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("timeout waiting for collectors to stop")
	}
	if store != nil {
		store.Close()
	}
	return nil
}

func (m *Manager) wrapHandler() ResultHandler {
	if m.OnValue == nil {
		// default: log readings
		return func(r Reading) error {
			slog.Info("reading", "serial", r.SerialNum, "field", r.Field, "value", r.Value)
			return nil
		}
	}
	return m.OnValue
}
