package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 500, c.MaxBatchOps)
	assert.Equal(t, 64, c.FeedBuffer)
	assert.Equal(t, "info", c.LogLevel)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "no flags",
			args:   nil,
			mutate: func(*Config) {},
		},
		{
			name: "all flags",
			args: []string{"-a", "127.0.0.1:9090", "-d", "db", "-k", "secret", "-t", "1", "-r", "3", "-l", "100", "-v", "debug"},
			mutate: func(c *Config) {
				c.EndpointAddrGRPC = "127.0.0.1:9090"
				c.DatabaseDSN = "db"
				c.SecretKey = "secret"
				c.AccessTokenValidityDuration = time.Minute
				c.RefreshTokenValidityDuration = 3 * time.Minute
				c.MaxBatchOps = 100
				c.LogLevel = "debug"
			},
		},
		{
			name:   "foreign flags are ignored",
			args:   []string{"-x", "1", "-a", ":1"},
			mutate: func(c *Config) { c.EndpointAddrGRPC = ":1" },
		},
		{
			name:    "bad number",
			args:    []string{"-l", "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.mutate(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_grpc":             "www.example:9000",
		"secret_key":                     "from-file",
		"access_token_validity_duration": "2m",
		"max_batch_ops":                  250,
		"log_level":                      "warn",
	})

	cfg := defaults()
	require.NoError(t, parseJSON(cfg, []string{"-config", path}))

	want := defaults()
	want.EndpointAddrGRPC = "www.example:9000"
	want.SecretKey = "from-file"
	want.AccessTokenValidityDuration = 2 * time.Minute
	want.MaxBatchOps = 250
	want.LogLevel = "warn"
	assert.Empty(t, cmp.Diff(want, cfg))

	cfg = defaults()
	require.NoError(t, parseJSON(cfg, nil))
	assert.Empty(t, cmp.Diff(defaults(), cfg))

	assert.Error(t, parseJSON(defaults(), []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"endpoint_addr_grpc": ":7000", "database_dsn": "file-dsn"})

	cfg, err := load([]string{"-c", path, "-a", ":8000"})
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.EndpointAddrGRPC)
	assert.Equal(t, "file-dsn", cfg.DatabaseDSN)
}
