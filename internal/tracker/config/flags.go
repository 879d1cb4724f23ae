package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/testtracker/internal/flagx"
)

var knownFlags = []string{
	"-u", "-b", "-d", "-data-dir",
	"-attachments", "-attachments-dir",
	"-s3-access-key", "-s3-secret-key", "-s3-bucket", "-s3-region", "-s3-endpoint",
	"-tz", "-log-level", "-lock-timeout",
}

// parseFlags overlays cfg with command-line flags.
//
// Supported flags:
//
//	-u string              tester name
//	-b string              storage backend: sqlite, postgres or csv
//	-d string              database DSN
//	-data-dir string       directory for the SQLite file or CSV files
//	-attachments string    attachment backend: local or s3
//	-attachments-dir path  local attachment directory
//	-s3-*                  object storage settings
//	-tz string             IANA timezone for calendar days
//	-log-level string      debug, info, warn or error
//	-lock-timeout duration CSV lock wait, e.g. 5s
//
// Arguments not listed above are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Tester, "u", cfg.Tester, "tester name")
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "storage backend (sqlite|postgres|csv)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.AttachmentBackend, "attachments", cfg.AttachmentBackend, "attachment backend (local|s3)")
	fs.StringVar(&cfg.AttachmentsDir, "attachments-dir", cfg.AttachmentsDir, "local attachment directory")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "s3-endpoint", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "timezone for calendar days")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.LockTimeout, "lock-timeout", cfg.LockTimeout, "file lock timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
