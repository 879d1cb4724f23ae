package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/dmitrijs2005/testtracker/internal/logging"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCSV      = "csv"

	AttachmentsLocal = "local"
	AttachmentsS3    = "s3"
)

// Config holds runtime settings for the tracker.
//
// Fields:
//   - Tester: name recorded on progress rows; may be set later with `user`.
//   - Backend: progress/catalog storage, one of sqlite, postgres or csv.
//   - DatabaseDSN: connection string; derived from DataDir for sqlite when empty.
//   - DataDir: directory holding the SQLite file or the CSV files.
//   - AttachmentBackend / AttachmentsDir: where remark images are stored.
//   - S3*: object storage settings used when AttachmentBackend is s3.
//   - Timezone: IANA name the calendar day is computed in ("Local" by default).
//   - LockTimeout: how long a mutation waits for the CSV file lock.
type Config struct {
	Tester string

	Backend     string
	DatabaseDSN string
	DataDir     string

	AttachmentBackend string
	AttachmentsDir    string
	S3AccessKey       string
	S3SecretKey       string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string

	Timezone    string
	LogLevel    string
	LockTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendSQLite
	c.DataDir = "data"
	c.AttachmentBackend = AttachmentsLocal
	c.S3Bucket = "testtracker"
	c.S3Region = "us-east-1"
	c.Timezone = "Local"
	c.LogLevel = "info"
	c.LockTimeout = 10 * time.Second
}

// LoadConfig builds a Config from os.Args. It panics on unreadable JSON or
// malformed flags.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}

// Load is LoadConfig over explicit arguments.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCSV:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("postgres backend requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.AttachmentBackend {
	case AttachmentsLocal:
	case AttachmentsS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 attachments require a bucket")
		}
	default:
		return fmt.Errorf("unknown attachment backend %q", c.AttachmentBackend)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock timeout must not be negative")
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SQLitePath is the database file used when no DSN is configured.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "tracker.db")
}

// ProgressCSVPath and CatalogCSVPath are the files of the csv backend.
func (c *Config) ProgressCSVPath() string {
	return filepath.Join(c.DataDir, "progress.csv")
}

func (c *Config) CatalogCSVPath() string {
	return filepath.Join(c.DataDir, "catalog.csv")
}

// AttachmentsPath defaults to DataDir/attachments.
func (c *Config) AttachmentsPath() string {
	if c.AttachmentsDir != "" {
		return c.AttachmentsDir
	}
	return filepath.Join(c.DataDir, "attachments")
}
