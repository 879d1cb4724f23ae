package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/testtracker/internal/flagx"
	"github.com/dmitrijs2005/testtracker/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. LockTimeout
// relies on timex.Duration so it can be "5s" or integer nanoseconds.
type JsonConfig struct {
	Tester            string          `json:"tester"`
	Backend           string          `json:"backend"`
	DatabaseDSN       string          `json:"database_dsn"`
	DataDir           string          `json:"data_dir"`
	AttachmentBackend string          `json:"attachment_backend"`
	AttachmentsDir    string          `json:"attachments_dir"`
	S3AccessKey       string          `json:"s3_access_key"`
	S3SecretKey       string          `json:"s3_secret_key"`
	S3Bucket          string          `json:"s3_bucket"`
	S3Region          string          `json:"s3_region"`
	S3BaseEndpoint    string          `json:"s3_base_endpoint"`
	Timezone          string          `json:"timezone"`
	LogLevel          string          `json:"log_level"`
	LockTimeout       *timex.Duration `json:"lock_timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Keys absent
// from the file keep their current values. Panics on read or unmarshal
// errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Tester, jc.Tester)
	set(&cfg.Backend, jc.Backend)
	set(&cfg.DatabaseDSN, jc.DatabaseDSN)
	set(&cfg.DataDir, jc.DataDir)
	set(&cfg.AttachmentBackend, jc.AttachmentBackend)
	set(&cfg.AttachmentsDir, jc.AttachmentsDir)
	set(&cfg.S3AccessKey, jc.S3AccessKey)
	set(&cfg.S3SecretKey, jc.S3SecretKey)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	set(&cfg.Timezone, jc.Timezone)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.LockTimeout != nil {
		cfg.LockTimeout = jc.LockTimeout.Duration
	}
}
