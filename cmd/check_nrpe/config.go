package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config holds defaults loaded from an optional YAML file. Values set
// explicitly on the command line take precedence.
type config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	SSL      *bool  `yaml:"ssl"`
	Timeout  string `yaml:"timeout"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config file %s: port %d out of range", path, cfg.Port)
	}

	if _, err := cfg.timeout(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, fmt.Errorf("config file %s: cert_file and key_file must be set together", path)
	}

	return &cfg, nil
}

// timeout parses the string duration, e.g. "5s". Empty means none.
func (c *config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}

	return d, nil
}
