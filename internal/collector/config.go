package collector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"solmate-sdk/internal/logger"
)

// Root configuration for the concurrent collector manager.
// This mirrors config/config.yaml.

type RootConfig struct {
	System   SystemConfig    `yaml:"system"`
	Solmates []SolmateConfig `yaml:"solmates"`
}

type SystemConfig struct {
	Processing struct {
		MaxWorkers int `yaml:"max_workers"`
	} `yaml:"processing"`
	Storage struct {
		Enabled      bool          `yaml:"enabled"`
		FileType     string        `yaml:"file_type"` // log|csv|json|db and combinations
		Path         string        `yaml:"path"`
		MaxQueueSize int           `yaml:"max_queue_size"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"storage"`
	Logging logger.Config `yaml:"logging"`
}

// SolmateConfig describes one device to poll.
type SolmateConfig struct {
	SerialNum    string        `yaml:"serial_num"`
	Name         string        `yaml:"name"`
	Password     string        `yaml:"password"`
	URI          string        `yaml:"uri"`       // empty means the public Sol endpoint
	DeviceID     string        `yaml:"device_id"` // reported to the backend on login
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	OnlineEvery  int           `yaml:"online_every"` // check_online every N polls, 0 disables
}

func LoadYAML(path string) (RootConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RootConfig{}, err
	}
	var cfg RootConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RootConfig{}, err
	}
	// Defaults
	if cfg.System.Processing.MaxWorkers <= 0 {
		cfg.System.Processing.MaxWorkers = 10
	}
	if cfg.System.Storage.MaxQueueSize <= 0 {
		cfg.System.Storage.MaxQueueSize = 1000
	}
	for i := range cfg.Solmates {
		if cfg.Solmates[i].PollInterval <= 0 {
			cfg.Solmates[i].PollInterval = 10 * time.Second
		}
		if cfg.Solmates[i].Timeout <= 0 {
			cfg.Solmates[i].Timeout = 30 * time.Second
		}
	}
	// Basic validation
	if len(cfg.Solmates) == 0 {
		return RootConfig{}, fmt.Errorf("no solmates configured")
	}
	for _, s := range cfg.Solmates {
		if s.SerialNum == "" {
			return RootConfig{}, fmt.Errorf("solmate entry without serial_num")
		}
	}
	return cfg, nil
}
