// Package config loads the bridge's configuration: the hub connection,
// the integration server's listen/TLS settings, and logging.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config is the root configuration shape. Mapstructure tags mirror the
// YAML/env key names from spec.md §6: root keys `hass`, `integration`,
// `logging`.
type Config struct {
	LogLevel zapcore.Level `mapstructure:"-"`

	Hass        HassConfig        `mapstructure:"hass"`
	Integration IntegrationConfig `mapstructure:"integration"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// HassConfig describes how to reach and authenticate against the hub's
// WebSocket API.
type HassConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	ConnectionTimeout int           `mapstructure:"connection_timeout"`
	MaxFrameSize      int           `mapstructure:"max_frame_size"`
	TLS               HassTLSConfig `mapstructure:"tls"`
}

type HassTLSConfig struct {
	Verify  bool     `mapstructure:"verify"`
	CACerts []string `mapstructure:"ca_certs"`
}

// IntegrationConfig describes the integration server's bind
// interface/ports and the remote-facing websocket heartbeat.
type IntegrationConfig struct {
	Interface string           `mapstructure:"interface"`
	HTTP      IntegrationHTTP  `mapstructure:"http"`
	HTTPS     IntegrationHTTPS `mapstructure:"https"`
	HTTPLog   bool             `mapstructure:"http_log"`
	Websocket WebsocketConfig  `mapstructure:"websocket"`
}

type IntegrationHTTP struct {
	Port int `mapstructure:"port"`
}

type IntegrationHTTPS struct {
	Port        int    `mapstructure:"port"`
	Certificate string `mapstructure:"certificate"`
	PrivateKey  string `mapstructure:"private_key"`
}

// ListenAddr is the host:port the integration server binds to: the
// HTTPS port when TLS is configured, else the plain HTTP port.
func (c IntegrationConfig) ListenAddr() string {
	port := c.HTTP.Port
	if c.HTTPS.Port > 0 {
		port = c.HTTPS.Port
	}
	return fmt.Sprintf("%s:%d", c.Interface, port)
}

// TLSEnabled reports whether the integration server should serve over
// HTTPS, i.e. whether integration.https.port is set.
func (c IntegrationConfig) TLSEnabled() bool {
	return c.HTTPS.Port > 0
}

type WebsocketConfig struct {
	HeartbeatInterval int    `mapstructure:"heartbeat_interval"`
	Token             string `mapstructure:"token"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ConfigError wraps a configuration validation failure, including the
// strict unknown-key rejection spec.md §6 requires.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

func newConfigError(reason string) error {
	return &ConfigError{Reason: reason}
}

// Validate checks the bounds spec.md §6 names beyond plain type
// decoding. hass.url/hass.token are intentionally allowed empty: a
// freshly-deployed driver has neither until its setup flow persists
// them to driver.json (spec.md §4.4), so the controller starts with no
// hub client and every session begins in SetupRequired.
func (c *Config) Validate() error {
	if (c.Hass.URL == "") != (c.Hass.Token == "") {
		return newConfigError("hass.url and hass.token must both be set or both be empty")
	}
	if c.Integration.HTTP.Port <= 0 && c.Integration.HTTPS.Port <= 0 {
		return newConfigError("integration.http.port or integration.https.port must be set")
	}
	if c.Integration.Websocket.HeartbeatInterval <= 0 {
		return newConfigError("integration.websocket.heartbeat_interval must be > 0")
	}
	if c.Integration.HTTPS.Port > 0 && (c.Integration.HTTPS.Certificate == "" || c.Integration.HTTPS.PrivateKey == "") {
		return newConfigError("integration.https.port requires certificate and private_key")
	}
	return nil
}

var errUnknownLogLevel = errors.New("unknown log level")

func ParseLogLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, errUnknownLogLevel
	}
}
