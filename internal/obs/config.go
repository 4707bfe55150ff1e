package obs

import (
	"fmt"
	"time"
)

// Default values for optional ConnectionConfig fields.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 4455
	DefaultRequestTimeout = 5 * time.Second
)

// ConnectionConfig holds the user configurable parameters for one OBS
// WebSocket connection. Configs are value types: a change always produces
// a new config rather than mutating one in place.
type ConnectionConfig struct {
	Host               string
	Port               int
	Password           string
	UseSSL             bool
	RequestTimeout     time.Duration
	EventSubscriptions int
}

// DefaultConnectionConfig returns a config pointing at a local OBS
// instance with no authentication.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Host:           DefaultHost,
		Port:           DefaultPort,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// URL derives the WebSocket endpoint, ws://host:port or wss://host:port.
func (c ConnectionConfig) URL() string {
	scheme := "ws"
	if c.UseSSL {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// requiresReconnect reports whether switching from c to next invalidates
// an established session. Timeout and subscription changes take effect
// without a reconnect.
func (c ConnectionConfig) requiresReconnect(next ConnectionConfig) bool {
	return c.Host != next.Host ||
		c.Port != next.Port ||
		c.UseSSL != next.UseSSL ||
		c.Password != next.Password
}

// ConfigPatch describes a partial configuration change. Nil fields keep
// their current value.
type ConfigPatch struct {
	Host               *string
	Port               *int
	Password           *string
	UseSSL             *bool
	RequestTimeout     *time.Duration
	EventSubscriptions *int
}

// Apply produces the config resulting from applying p to cfg. The input
// is never modified.
func (p ConfigPatch) Apply(cfg ConnectionConfig) ConnectionConfig {
	if p.Host != nil {
		cfg.Host = *p.Host
	}
	if p.Port != nil {
		cfg.Port = *p.Port
	}
	if p.Password != nil {
		cfg.Password = *p.Password
	}
	if p.UseSSL != nil {
		cfg.UseSSL = *p.UseSSL
	}
	if p.RequestTimeout != nil {
		cfg.RequestTimeout = *p.RequestTimeout
	}
	if p.EventSubscriptions != nil {
		cfg.EventSubscriptions = *p.EventSubscriptions
	}
	return cfg
}
