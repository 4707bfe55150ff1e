package obs

import (
	"testing"
	"time"
)

func TestConnectionConfig_URL(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConnectionConfig
		want string
	}{
		{
			name: "plain websocket",
			cfg:  ConnectionConfig{Host: "127.0.0.1", Port: 4455},
			want: "ws://127.0.0.1:4455",
		},
		{
			name: "secure websocket",
			cfg:  ConnectionConfig{Host: "obs.example.com", Port: 4456, UseSSL: true},
			want: "wss://obs.example.com:4456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigPatch_Apply(t *testing.T) {
	base := DefaultConnectionConfig()

	host := "10.0.0.5"
	timeout := 10 * time.Second
	patched := ConfigPatch{Host: &host, RequestTimeout: &timeout}.Apply(base)

	if patched.Host != host {
		t.Errorf("Host = %q, want %q", patched.Host, host)
	}
	if patched.RequestTimeout != timeout {
		t.Errorf("RequestTimeout = %v, want %v", patched.RequestTimeout, timeout)
	}
	if patched.Port != base.Port {
		t.Errorf("Port changed to %d, want untouched %d", patched.Port, base.Port)
	}

	// The original value must not be mutated.
	if base.Host != DefaultHost {
		t.Errorf("Apply mutated its input: Host = %q", base.Host)
	}
}

func TestConfigPatch_ApplyEmpty(t *testing.T) {
	base := ConnectionConfig{
		Host:           "localhost",
		Port:           4455,
		Password:       "secret",
		RequestTimeout: time.Second,
	}

	if got := (ConfigPatch{}).Apply(base); got != base {
		t.Errorf("empty patch changed config: %+v != %+v", got, base)
	}
}

func TestConnectionConfig_RequiresReconnect(t *testing.T) {
	base := DefaultConnectionConfig()

	tests := []struct {
		name string
		next ConnectionConfig
		want bool
	}{
		{"identical", base, false},
		{"timeout only", func() ConnectionConfig {
			c := base
			c.RequestTimeout = time.Minute
			return c
		}(), false},
		{"subscriptions only", func() ConnectionConfig {
			c := base
			c.EventSubscriptions = 1 << 3
			return c
		}(), false},
		{"host change", func() ConnectionConfig {
			c := base
			c.Host = "elsewhere"
			return c
		}(), true},
		{"password change", func() ConnectionConfig {
			c := base
			c.Password = "new"
			return c
		}(), true},
		{"ssl change", func() ConnectionConfig {
			c := base
			c.UseSSL = true
			return c
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.requiresReconnect(tt.next); got != tt.want {
				t.Errorf("requiresReconnect() = %v, want %v", got, tt.want)
			}
		})
	}
}
