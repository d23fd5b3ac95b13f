// Package exporter exposes SolMate live values as Prometheus metrics.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"solmate-sdk/pkg/solmate"
)

// Target is one SolMate to scrape.
type Target struct {
	SerialNum string
	Name      string
	Password  string
	URI       string // empty means the public Sol endpoint
	DeviceID  string
}

// scrapeTimeout bounds one full scrape of a single target.
const scrapeTimeout = 15 * time.Second

// target carries the per-device client. The SDK client allows one request
// in flight, so each target is scraped under its own lock.
type target struct {
	cfg     Target
	mu      sync.Mutex
	client  *solmate.Client
	version string
}

// Collector implements prometheus.Collector for SolMate telemetry.
type Collector struct {
	targets []*target

	pvPower       *prometheus.Desc
	batteryFlow   *prometheus.Desc
	injectPower   *prometheus.Desc
	batteryState  *prometheus.Desc
	temperature   *prometheus.Desc
	online        *prometheus.Desc
	info          *prometheus.Desc
	scrapeSuccess *prometheus.Desc
}

// NewCollector creates a collector scraping the given SolMates.
func NewCollector(targets []Target) *Collector {
	labels := []string{"serial_num", "name"}
	ts := make([]*target, 0, len(targets))
	for _, cfg := range targets {
		ts = append(ts, &target{cfg: cfg})
	}
	return &Collector{
		targets: ts,
		pvPower: prometheus.NewDesc(
			"solmate_pv_power_watts",
			"Current photovoltaic production in watts",
			labels, nil,
		),
		batteryFlow: prometheus.NewDesc(
			"solmate_battery_flow_watts",
			"Current battery flow in watts (positive=charging, negative=discharging)",
			labels, nil,
		),
		injectPower: prometheus.NewDesc(
			"solmate_inject_power_watts",
			"Current injection into the household grid in watts",
			labels, nil,
		),
		batteryState: prometheus.NewDesc(
			"solmate_battery_state_percent",
			"Battery state of charge in percent",
			labels, nil,
		),
		temperature: prometheus.NewDesc(
			"solmate_temperature_celsius",
			"Device temperature in degrees celsius",
			labels, nil,
		),
		online: prometheus.NewDesc(
			"solmate_online",
			"Whether the backend reports the SolMate reachable (1=yes, 0=no)",
			labels, nil,
		),
		info: prometheus.NewDesc(
			"solmate_info",
			"SolMate device information",
			[]string{"serial_num", "name", "version"}, nil,
		),
		scrapeSuccess: prometheus.NewDesc(
			"solmate_scrape_success",
			"Whether scraping the SolMate succeeded",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pvPower
	ch <- c.batteryFlow
	ch <- c.injectPower
	ch <- c.batteryState
	ch <- c.temperature
	ch <- c.online
	ch <- c.info
	ch <- c.scrapeSuccess
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var wg sync.WaitGroup

	for _, t := range c.targets {
		wg.Add(1)
		go func(t *target) {
			defer wg.Done()
			c.collectTarget(t, ch)
		}(t)
	}

	wg.Wait()
}

func (c *Collector) collectTarget(t *target, ch chan<- prometheus.Metric) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	labels := []string{t.cfg.SerialNum, t.cfg.Name}

	if err := c.ensureClient(ctx, t); err != nil {
		slog.Warn("scrape connect failed", "serial", t.cfg.SerialNum, "err", err)
		ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 0, labels...)
		return
	}

	values, err := t.client.GetLiveValues(ctx)
	if err != nil {
		slog.Warn("scrape live values failed", "serial", t.cfg.SerialNum, "err", err)
		_ = t.client.Close()
		t.client = nil
		ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 0, labels...)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 1, labels...)

	gauges := []struct {
		desc  *prometheus.Desc
		field string
	}{
		{c.pvPower, "pv_power"},
		{c.batteryFlow, "battery_flow"},
		{c.injectPower, "inject_power"},
		{c.batteryState, "battery_state"},
		{c.temperature, "temperature"},
	}
	for _, g := range gauges {
		if v, ok := values.Float(g.field); ok {
			ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, v, labels...)
		}
	}

	if online, err := t.client.CheckOnline(ctx); err == nil {
		v := 0.0
		if online {
			v = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.online, prometheus.GaugeValue, v, labels...)
	}

	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1,
		t.cfg.SerialNum, t.cfg.Name, t.version)
}

// ensureClient connects and authenticates the target's client if needed,
// caching the reported software version on first contact.
func (c *Collector) ensureClient(ctx context.Context, t *target) error {
	if t.client != nil && t.client.State() == solmate.StateAuthenticated {
		return nil
	}
	opts := []solmate.Option{}
	if t.cfg.URI != "" {
		opts = append(opts, solmate.WithURI(t.cfg.URI))
	}
	if t.cfg.DeviceID != "" {
		opts = append(opts, solmate.WithDeviceID(t.cfg.DeviceID))
	}
	client := solmate.NewClient(t.cfg.SerialNum, opts...)
	if err := client.Quickstart(ctx, t.cfg.Password); err != nil {
		return err
	}
	if info, err := client.GetInfo(ctx); err == nil {
		if v, ok := info["version"].(string); ok {
			t.version = v
		}
	}
	t.client = client
	return nil
}
