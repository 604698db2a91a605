package app

import (
	"github.com/joefazee/optionsdesk/app/accounts"
	"github.com/joefazee/optionsdesk/app/archive"
	"github.com/joefazee/optionsdesk/app/database"
	"github.com/joefazee/optionsdesk/app/desk"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/options"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/nexus"
)

type Config struct {
	DB       database.Config
	Cache    cache.Config
	Events   events.Config
	Pricing  pricing.Config
	Desk     desk.Config
	Accounts accounts.Config
	Options  options.Config
	Archive  archive.Config

	AppHost  string `env:"APP_HOST" env-default:"localhost"`
	AppPort  string `env:"APP_PORT" env-default:"8080"`
	Env      string `env:"APP_ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig loads the application configuration from environment variables or a config file.
func LoadConfig(opts ...nexus.LoaderOption) (*Config, error) {
	c := &Config{}
	err := nexus.NewLoader(opts...).Load(c)
	return c, err
}

// Validate checks every module section.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.DB, &c.Cache, &c.Events, &c.Pricing, &c.Desk, &c.Accounts, &c.Options, &c.Archive,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}
