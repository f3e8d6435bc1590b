package config

import (
	"os"
	"time"
)

// S3 locates the backup bucket.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Config holds runtime settings for the finsync client.
type Config struct {
	ServerEndpointAddr string
	DatabaseDSN        string
	SyncInterval       time.Duration
	HTTPAddr           string
	// BackupDir receives archives when no bucket is configured. Empty
	// disables local backups.
	BackupDir string
	S3        S3
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabaseDSN = "finsync.db"
	c.SyncInterval = 5 * time.Minute
	c.HTTPAddr = ""
	c.BackupDir = "backups"
	c.S3 = S3{Region: "us-east-1"}
}

// LoadConfig applies defaults, then the JSON file, then flags from the
// process arguments.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
