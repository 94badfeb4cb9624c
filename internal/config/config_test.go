package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DEFAULT_ROWS", "DEFAULT_COLS", "MAX_BOARD_SIZE", "SESSION_IDLE_TIMEOUT",
		"SESSION_REAP_INTERVAL", "ALLOWED_ORIGINS", "SUPABASE_JWT_SECRET", "BYPASS_AUTH",
		"LOG_LEVEL", "PIECE_SEED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BYPASS_AUTH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 16, cfg.DefaultRows)
	assert.Equal(t, 16, cfg.DefaultCols)
	assert.Equal(t, 64, cfg.MaxBoardSize)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, time.Minute, cfg.ReapInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.BypassAuth)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, int64(0), cfg.PieceSeed)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_ROWS", "7")
	t.Setenv("DEFAULT_COLS", "9")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PIECE_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 7, cfg.DefaultRows)
	assert.Equal(t, 9, cfg.DefaultCols)
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.False(t, cfg.BypassAuth)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, int64(42), cfg.PieceSeed)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"non numeric rows", map[string]string{"BYPASS_AUTH": "true", "DEFAULT_ROWS": "abc"}},
		{"zero cols", map[string]string{"BYPASS_AUTH": "true", "DEFAULT_COLS": "0"}},
		{"default above max", map[string]string{"BYPASS_AUTH": "true", "MAX_BOARD_SIZE": "8"}},
		{"bad duration", map[string]string{"BYPASS_AUTH": "true", "SESSION_IDLE_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"BYPASS_AUTH": "maybe"}},
		{"bad log level", map[string]string{"BYPASS_AUTH": "true", "LOG_LEVEL": "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// TestLoadBoard はサーバー用の認証設定がなくてもボード設定を読み込めることを確認します。
func TestLoadBoard(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_ROWS", "10")
	t.Setenv("PIECE_SEED", "7")

	board, err := LoadBoard()
	require.NoError(t, err)
	assert.Equal(t, BoardConfig{DefaultRows: 10, DefaultCols: 16, MaxBoardSize: 64, PieceSeed: 7}, board)

	t.Setenv("MAX_BOARD_SIZE", "0")
	_, err = LoadBoard()
	assert.Error(t, err)
}
