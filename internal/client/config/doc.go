// Package config loads runtime configuration for the finsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string      address:port of the finsync server
//	-d string      SQLite DSN of the local store
//	-i int         periodic sync interval (seconds, 0 disables)
//	-http string   control API bind address (empty disables)
//	-b string      S3 bucket for backups (empty disables)
//
// # JSON schema
//
// Intervals use timex.Duration, so they are strings like "5m" or integer
// nanoseconds. S3 settings other than the bucket are JSON-only:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_dsn": "finsync.db",
//	  "sync_interval": "5m",
//	  "http_addr": "127.0.0.1:8088",
//	  "s3": {
//	    "bucket": "finsync-backups",
//	    "region": "us-east-1",
//	    "endpoint": "http://localhost:9000",
//	    "access_key": "minio",
//	    "secret_key": "minio123",
//	    "prefix": "alice/"
//	  }
//	}
package config
