package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, 5, cfg.RoomMaxPlayers)
	assert.Equal(t, 3*time.Second, cfg.WSWriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, 32, cfg.WSSendBuffer)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.WSOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://loto@localhost/loto")
	t.Setenv("ROOM_MAX_PLAYERS", "8")
	t.Setenv("WS_WRITE_TIMEOUT", "1500ms")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WS_ORIGIN_PATTERNS", "localhost:*, example.com")

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.False(t, cfg.InMemory())
	assert.Equal(t, 8, cfg.RoomMaxPlayers)
	assert.Equal(t, 1500*time.Millisecond, cfg.WSWriteTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"localhost:*", "example.com"}, cfg.WSOrigins)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero capacity", "ROOM_MAX_PLAYERS", "0"},
		{"negative capacity", "ROOM_MAX_PLAYERS", "-2"},
		{"unknown level", "LOG_LEVEL", "chatty"},
		{"unknown encoding", "LOG_ENCODING", "xml"},
		{"no buffer", "WS_SEND_BUFFER", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			v := viper.New()
			v.AutomaticEnv()
			_, err := load(v)
			assert.ErrorContains(t, err, tc.key)
		})
	}
}
