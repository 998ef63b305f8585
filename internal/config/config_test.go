package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"TELEGRAM_TOKEN": "token",
		"DB_DSN":         "postgres://localhost/classbooking",
	}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, BackendPostgres, cfg.BackendMode)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Timezone)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.CancelRefreshDelay)
	assert.Equal(t, 5*time.Minute, cfg.CatalogRefreshInterval)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestFromEnv_HTTPMode(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"TELEGRAM_TOKEN":  "token",
		"BACKEND_MODE":    "HTTP",
		"BACKEND_URL":     "https://api.example.com/",
		"BACKEND_TOKEN":   "secret",
		"METRICS_ENABLED": "false",
		"TIMEZONE":        "UTC",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendHTTP, cfg.BackendMode)
	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.False(t, cfg.MetricsEnabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing token",
			env:  map[string]string{"DB_DSN": "dsn"},
			want: "TELEGRAM_TOKEN",
		},
		{
			name: "missing dsn in postgres mode",
			env:  map[string]string{"TELEGRAM_TOKEN": "t"},
			want: "DB_DSN",
		},
		{
			name: "missing url in http mode",
			env:  map[string]string{"TELEGRAM_TOKEN": "t", "BACKEND_MODE": "http"},
			want: "BACKEND_URL",
		},
		{
			name: "unknown mode",
			env:  map[string]string{"TELEGRAM_TOKEN": "t", "BACKEND_MODE": "grpc"},
			want: "BACKEND_MODE",
		},
		{
			name: "bad duration",
			env:  map[string]string{"TELEGRAM_TOKEN": "t", "DB_DSN": "d", "CANCEL_REFRESH_DELAY": "soon"},
			want: "CANCEL_REFRESH_DELAY",
		},
		{
			name: "bad page size",
			env:  map[string]string{"TELEGRAM_TOKEN": "t", "DB_DSN": "d", "PAGE_SIZE": "0"},
			want: "PAGE_SIZE",
		},
		{
			name: "bad timezone",
			env:  map[string]string{"TELEGRAM_TOKEN": "t", "DB_DSN": "d", "TIMEZONE": "Mars/Olympus"},
			want: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
