package config

import (
	"testing"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "https agent", mutate: func(c *Config) { c.Agent.URL = "https://dash.example.com" }, ok: true},
		{name: "ssh alias", mutate: func(c *Config) { c.Agent.SSH = "deploy@web:2222" }, ok: true},
		{name: "future version", mutate: func(c *Config) { c.Version = CurrentConfigVersion + 1 }},
		{name: "url without host", mutate: func(c *Config) { c.Agent.URL = "localhost" }},
		{name: "ws scheme", mutate: func(c *Config) { c.Agent.URL = "ws://localhost:80" }},
		{name: "ssh with spaces", mutate: func(c *Config) { c.Agent.SSH = "my host" }},
		{name: "negative timeout", mutate: func(c *Config) { c.Agent.Timeout = -time.Second }},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "carrier-pigeon" }},
		{name: "zero refresh", mutate: func(c *Config) { c.Refresh = 0 }},
		{name: "zero redraw", mutate: func(c *Config) { c.Redraw = 0 }},
		{name: "zero retention", mutate: func(c *Config) { c.Retention = 0 }},
		{name: "negative history", mutate: func(c *Config) { c.HistorySize = -1 }},
		{name: "bad listen", mutate: func(c *Config) { c.Server.Listen = "8080" }},
		{name: "invalid page", mutate: func(c *Config) {
			c.Pages = []widget.Page{{Name: widget.LoadingPage}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}
