package config

import (
	"time"

	"github.com/SecareLupus/twitchat-bridge/internal/obs"
)

// Config holds the bridge settings.
type Config struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Password           string        `yaml:"password"`
	UseSSL             bool          `yaml:"use_ssl"`
	Namespace          string        `yaml:"namespace"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	EventSubscriptions int           `yaml:"event_subscriptions"`
}

// OBSConfig converts the settings into a connection configuration.
func (c *Config) OBSConfig() obs.ConnectionConfig {
	return obs.ConnectionConfig{
		Host:               c.Host,
		Port:               c.Port,
		Password:           c.Password,
		UseSSL:             c.UseSSL,
		RequestTimeout:     c.RequestTimeout,
		EventSubscriptions: c.EventSubscriptions,
	}
}

// Diff produces the connection patch that turns old's connection settings
// into c's. Fields that did not change stay nil so UpdateConfig can
// recognize a no-op.
func (c *Config) Diff(old *Config) obs.ConfigPatch {
	var patch obs.ConfigPatch
	if c.Host != old.Host {
		patch.Host = &c.Host
	}
	if c.Port != old.Port {
		patch.Port = &c.Port
	}
	if c.Password != old.Password {
		patch.Password = &c.Password
	}
	if c.UseSSL != old.UseSSL {
		patch.UseSSL = &c.UseSSL
	}
	if c.RequestTimeout != old.RequestTimeout {
		patch.RequestTimeout = &c.RequestTimeout
	}
	if c.EventSubscriptions != old.EventSubscriptions {
		patch.EventSubscriptions = &c.EventSubscriptions
	}
	return patch
}
