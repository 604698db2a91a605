package accounts

import (
	"errors"
	"time"

	"github.com/joefazee/optionsdesk/internal/chain"
)

type Config struct {
	SymmetricKey string        `env:"PASETO_SYMMETRIC_KEY" secret:"true"`
	TokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	ChallengeTTL time.Duration `env:"AUTH_CHALLENGE_TTL" env-default:"5m"`
	// Domain is shown to the wallet in the sign-in message.
	Domain string `env:"AUTH_DOMAIN" env-default:"optionsdesk.local"`
	// FaucetMax caps a single admin funding, in ether.
	FaucetMax string `env:"FAUCET_MAX_ETHER" env-default:"1000"`
}

func (c *Config) Validate() error {
	if len(c.SymmetricKey) != 32 {
		return errors.New("symmetric key must be exactly 32 characters")
	}
	if c.TokenTTL <= 0 || c.ChallengeTTL <= 0 {
		return errors.New("token and challenge TTLs must be positive")
	}
	if c.Domain == "" {
		return errors.New("auth domain must be set")
	}
	limit, err := chain.ParseValue(c.FaucetMax, chain.Ether)
	if err != nil || !limit.IsPositive() {
		return errors.New("faucet max must be a positive amount")
	}
	return nil
}

func GetDefaultConfig() *Config {
	return &Config{
		SymmetricKey: "12345678901234567890123456789012",
		TokenTTL:     24 * time.Hour,
		ChallengeTTL: 5 * time.Minute,
		Domain:       "optionsdesk.local",
		FaucetMax:    "1000",
	}
}
