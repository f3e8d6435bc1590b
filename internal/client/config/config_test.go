package config

import (
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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, "finsync.db", c.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, c.SyncInterval)
	assert.Empty(t, c.HTTPAddr)
	assert.Equal(t, "backups", c.BackupDir)
	assert.Equal(t, "us-east-1", c.S3.Region)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "none", mutate: func(*Config) {}},
		{
			name: "all",
			args: []string{"-a", "srv:1", "-d", "x.db", "-i", "30", "-http", ":8088", "-o", "/tmp/bk", "-b", "bucket"},
			mutate: func(c *Config) {
				c.ServerEndpointAddr = "srv:1"
				c.DatabaseDSN = "x.db"
				c.SyncInterval = 30 * time.Second
				c.HTTPAddr = ":8088"
				c.BackupDir = "/tmp/bk"
				c.S3.Bucket = "bucket"
			},
		},
		{
			name:   "unknown flags are ignored",
			args:   []string{"-zzz", "1", "-i=0"},
			mutate: func(c *Config) { c.SyncInterval = 0 },
		},
		{name: "bad int", args: []string{"-i", "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaults()
			err := parseFlags(got, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.mutate(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	path := writeConfig(t, `{
		"server_endpoint_addr": "json:1",
		"sync_interval": "0s",
		"http_addr": "127.0.0.1:9999",
		"backup_dir": "bk",
		"s3": {"bucket": "b", "endpoint": "http://minio:9000", "access_key": "ak", "secret_key": "sk", "prefix": "p/"}
	}`)

	got := defaults()
	require.NoError(t, parseJSON(got, []string{"-c", path}))

	want := defaults()
	want.ServerEndpointAddr = "json:1"
	want.SyncInterval = 0
	want.HTTPAddr = "127.0.0.1:9999"
	want.BackupDir = "bk"
	want.S3 = S3{Bucket: "b", Region: "us-east-1", Endpoint: "http://minio:9000", AccessKey: "ak", SecretKey: "sk", Prefix: "p/"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	assert.Error(t, parseJSON(defaults(), []string{"-config", filepath.Join(t.TempDir(), "missing.json")}))
	assert.Error(t, parseJSON(defaults(), []string{"-c", writeConfig(t, "{")}))
	assert.Error(t, parseJSON(defaults(), []string{"-c", writeConfig(t, `{"sync_interval": true}`)}))
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeConfig(t, `{"server_endpoint_addr": "json:1", "database_dsn": "json.db"}`)

	cfg, err := load([]string{"-c", path, "-a", "flag:2"})
	require.NoError(t, err)
	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, "json.db", cfg.DatabaseDSN)
}
