package config

import (
	"github.com/dmitrijs2005/finsync/internal/flagx"
	"github.com/dmitrijs2005/finsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string          `json:"server_endpoint_addr"`
	DatabaseDSN        string          `json:"database_dsn"`
	SyncInterval       *timex.Duration `json:"sync_interval"`
	HTTPAddr           string          `json:"http_addr"`
	BackupDir          string          `json:"backup_dir"`
	S3                 struct {
		Bucket    string `json:"bucket"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
		Prefix    string `json:"prefix"`
	} `json:"s3"`
}

// parseJSON overlays the fields present in the file named by -c or
// -config. A sync_interval of "0s" disables the timer, so it is applied
// whenever the key is present.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	var jc JsonConfig
	if err := flagx.ReadJSON(path, &jc); err != nil {
		return err
	}

	set(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	set(&cfg.DatabaseDSN, jc.DatabaseDSN)
	set(&cfg.HTTPAddr, jc.HTTPAddr)
	set(&cfg.BackupDir, jc.BackupDir)
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}

	set(&cfg.S3.Bucket, jc.S3.Bucket)
	set(&cfg.S3.Region, jc.S3.Region)
	set(&cfg.S3.Endpoint, jc.S3.Endpoint)
	set(&cfg.S3.AccessKey, jc.S3.AccessKey)
	set(&cfg.S3.SecretKey, jc.S3.SecretKey)
	set(&cfg.S3.Prefix, jc.S3.Prefix)
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
