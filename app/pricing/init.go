package pricing

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/router"
)

// Container keys under which the module registers itself.
const (
	ServiceKey    = "pricing.service"
	RepositoryKey = "pricing.repository"
)

// Init wires the price book and mounts its routes. It needs the events
// module registered first.
func Init(m *router.Mounter, c *deps.Container, cfg *Config) (Service, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}

	calc, err := NewCalculator(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing configuration: %w", err)
	}
	notifier, err := deps.Service[*events.Notifier](c, events.NotifierKey)
	if err != nil {
		return nil, err
	}

	repo := NewRepository(c.DB)
	svc := NewService(repo, calc, cfg, c.Cache, notifier, c.Logger, c.Metrics)
	c.RegisterRepository(RepositoryKey, repo)
	c.RegisterService(ServiceKey, svc)

	handler := NewHandler(svc)
	m.Public().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		prices := r.Group("/prices")
		prices.GET("", handler.GetPrices)
		prices.GET("/:symbol", handler.GetPrice)
		prices.GET("/:symbol/history", handler.GetHistory)
		prices.GET("/:symbol/quote", handler.GetQuote)

		r.PUT("/oracle/prices/:symbol", handler.OracleUpdatePrice)
	})
	// The admin check lives in the service so non-admins get the revert reason.
	m.Authenticated().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.PUT("/prices/:symbol", handler.UpdatePrice)
	})
	return svc, nil
}
