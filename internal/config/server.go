package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig is the diagnostics listener. It is only validated when metrics are enabled.
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host" toml:"host"`
	Port            string        `json:"port" yaml:"port" toml:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DefaultServerConfig listens on localhost:9090
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            "9090",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Addr joins host and port for net.Listen
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (s ServerConfig) Validate() error {
	var errs []error
	if s.Host == "" {
		errs = append(errs, errors.New("host cannot be empty"))
	}
	if err := checkPort(s.Port); err != nil {
		errs = append(errs, err)
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

// checkPort accepts unprivileged ports plus 80 and 443
func checkPort(p string) error {
	if p == "" {
		return errors.New("port cannot be empty")
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("port must be a number: %w", err)
	}
	switch {
	case port < 1 || port > 65535:
		return fmt.Errorf("port %d out of range 1-65535", port)
	case port < 1024 && port != 80 && port != 443:
		return fmt.Errorf("port %d is privileged, use 1024-65535", port)
	}
	return nil
}
