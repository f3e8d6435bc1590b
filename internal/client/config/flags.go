package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/finsync/internal/flagx"
)

// parseFlags overlays the client flags found in args onto cfg.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-i", "-http", "-o", "-b"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local database DSN")
	interval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "control API address")
	fs.StringVar(&cfg.BackupDir, "o", cfg.BackupDir, "local backup directory")
	fs.StringVar(&cfg.S3.Bucket, "b", cfg.S3.Bucket, "S3 backup bucket")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.SyncInterval = time.Duration(*interval) * time.Second
	return nil
}
