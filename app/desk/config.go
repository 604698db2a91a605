package desk

import (
	"github.com/joefazee/optionsdesk/internal/chain"
)

// Config holds desk deployment settings.
type Config struct {
	// APIDeploy exposes POST /desk/deploy so a dev chain can be stood up
	// without cmd/deploy.
	APIDeploy bool `env:"DESK_API_DEPLOY" env-default:"false"`
	// MaxPrefund caps the balance a deploy may mint for its deployer, in ether.
	MaxPrefund string `env:"DESK_MAX_PREFUND" env-default:"1000"`
}

func GetDefaultConfig() *Config {
	return &Config{
		APIDeploy:  false,
		MaxPrefund: "1000",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	_, err := chain.ParseValue(c.MaxPrefund, chain.Ether)
	return err
}
