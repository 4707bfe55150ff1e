package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 4455
	DefaultNamespace      = "twitchat"
	DefaultRequestTimeout = 5 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}
