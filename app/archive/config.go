package archive

import (
	"errors"
	"time"
)

// Config controls the settled-option export to S3-compatible storage.
type Config struct {
	Enabled  bool          `env:"ARCHIVE_ENABLED" env-default:"false"`
	Interval time.Duration `env:"ARCHIVE_INTERVAL" env-default:"10m"`
	// BatchSize caps the options written into one object.
	BatchSize int    `env:"ARCHIVE_BATCH_SIZE" env-default:"500"`
	Prefix    string `env:"ARCHIVE_PREFIX" env-default:"settled"`

	// Endpoint is left empty for AWS; set it for MinIO, R2 and friends.
	Endpoint       string `env:"S3_ENDPOINT"`
	Region         string `env:"S3_REGION" env-default:"us-east-1"`
	Bucket         string `env:"S3_BUCKET" env-default:"optionsdesk-archive"`
	AccessKey      string `env:"S3_ACCESS_KEY" secret:"true"`
	SecretKey      string `env:"S3_SECRET_KEY" secret:"true"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" env-default:"true"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Interval:       10 * time.Minute,
		BatchSize:      500,
		Prefix:         "settled",
		Region:         "us-east-1",
		Bucket:         "optionsdesk-archive",
		ForcePathStyle: true,
	}
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("archive interval must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("archive batch size must be positive")
	}
	if !c.Enabled {
		return nil
	}
	if c.Bucket == "" || c.Region == "" {
		return errors.New("archive needs S3_BUCKET and S3_REGION")
	}
	return nil
}
