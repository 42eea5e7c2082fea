// Package config loads CLI endpoint configuration from TOML. Every field is
// optional; unset fields keep the client defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/simforge/extctl/internal/client"
)

type fileConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	ConnectTimeout     string `toml:"connect_timeout"`
	ReadTimeout        string `toml:"read_timeout"`
	WriteTimeout       string `toml:"write_timeout"`
	MaxConnectAttempts int    `toml:"max_connect_attempts"`
}

// LoadClientConfig reads path and overlays it on client.DefaultConfig.
func LoadClientConfig(path string) (client.Config, error) {
	cfg := client.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return client.Config{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("host") {
		host := strings.TrimSpace(raw.Host)
		if host == "" {
			return client.Config{}, fmt.Errorf("client config: host must not be blank")
		}
		cfg.Host = host
	}

	if meta.IsDefined("port") {
		if raw.Port < 1 || raw.Port > 65535 {
			return client.Config{}, fmt.Errorf("client config: port %d out of range", raw.Port)
		}
		cfg.Port = uint16(raw.Port)
	}

	if meta.IsDefined("connect_timeout") {
		d, err := parseTimeout("connect_timeout", raw.ConnectTimeout)
		if err != nil {
			return client.Config{}, err
		}
		cfg.Session.ConnectTimeout = d
	}

	if meta.IsDefined("read_timeout") {
		d, err := parseTimeout("read_timeout", raw.ReadTimeout)
		if err != nil {
			return client.Config{}, err
		}
		cfg.Session.ReadTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := parseTimeout("write_timeout", raw.WriteTimeout)
		if err != nil {
			return client.Config{}, err
		}
		cfg.Session.WriteTimeout = d
	}

	if meta.IsDefined("max_connect_attempts") {
		if raw.MaxConnectAttempts < 1 {
			return client.Config{}, fmt.Errorf("client config: max_connect_attempts must be at least 1")
		}
		cfg.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}

	return cfg, nil
}

func parseTimeout(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("client config: parse %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("client config: %s must not be negative", field)
	}
	return d, nil
}
