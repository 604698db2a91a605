package options

import (
	"errors"
	"time"

	"github.com/joefazee/optionsdesk/models"
)

// Config holds lifecycle engine settings.
type Config struct {
	// SweepInterval is how often expired options are marked lapsed.
	SweepInterval time.Duration `env:"OPTIONS_SWEEP_INTERVAL" env-default:"1m"`
	// SweepBatch caps the options lapsed per sweep.
	SweepBatch int `env:"OPTIONS_SWEEP_BATCH" env-default:"200"`
	// MaxNoteLength caps the listing note after HTML is stripped.
	MaxNoteLength int `env:"OPTIONS_MAX_NOTE_LENGTH" env-default:"280"`
}

func GetDefaultConfig() *Config {
	return &Config{
		SweepInterval: time.Minute,
		SweepBatch:    200,
		MaxNoteLength: 280,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SweepInterval <= 0 {
		return models.ErrInvalidSweepInterval
	}
	if c.SweepBatch <= 0 {
		return errors.New("sweep batch must be positive")
	}
	if c.MaxNoteLength < 0 {
		return errors.New("max note length cannot be negative")
	}
	return nil
}
