package accounts

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/router"
)

// Container keys under which the module registers itself.
const (
	ServiceKey    = "accounts.service"
	RepositoryKey = "accounts.repository"
)

// Init wires wallet login and balances. The admin group must already be
// configured on m for the faucet route.
func Init(m *router.Mounter, c *deps.Container, cfg *Config) (Service, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid accounts configuration: %w", err)
	}
	if c.TokenMaker == nil {
		return nil, errors.New("accounts: container has no token maker")
	}

	repo := NewRepository(c.DB)
	svc, err := NewService(repo, c.Cache, c.TokenMaker, cfg, c.Logger, c.Metrics)
	if err != nil {
		return nil, err
	}
	c.RegisterRepository(RepositoryKey, repo)
	c.RegisterService(ServiceKey, svc)

	handler := NewHandler(svc)
	m.Public().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.POST("/auth/challenge", handler.Challenge)
		r.POST("/auth/login", handler.Login)
	})
	m.Authenticated().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("/accounts/me", handler.Me)
		r.GET("/accounts/me/ledger", handler.Ledger)
	})
	m.Admin().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.POST("/accounts/:address/fund", handler.Fund)
	})
	return svc, nil
}
