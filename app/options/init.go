package options

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/router"
)

// Container keys under which the module registers itself.
const (
	ServiceKey    = "options.service"
	RepositoryKey = "options.repository"
)

// Init wires the lifecycle engine and mounts its routes. It needs the events,
// pricing and desk modules registered first; the returned Sweeper is run by
// the caller.
func Init(m *router.Mounter, c *deps.Container, cfg *Config) (Service, *Sweeper, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid options configuration: %w", err)
	}

	prices, err := deps.Service[pricing.Service](c, pricing.ServiceKey)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := deps.Service[*events.Notifier](c, events.NotifierKey)
	if err != nil {
		return nil, nil, err
	}

	repo := NewRepository(c.DB)
	svc := NewService(repo, prices, cfg, c.Sanitizer, notifier, c.Logger, c.Metrics)
	c.RegisterRepository(RepositoryKey, repo)
	c.RegisterService(ServiceKey, svc)

	handler := NewHandler(svc)
	m.Public().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("/options", handler.ListOptions)
		r.GET("/options/:id", handler.GetOption)
		r.GET("/options/:id/listing", handler.GetListing)
		r.GET("/options/:id/rebalance", handler.GetRebalanceOrder)
		r.GET("/options/:id/quote", handler.GetQuote)
	})
	m.Authenticated().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.POST("/options", handler.CreateOption)
		r.POST("/options/:id/buy", handler.BuyOption)
		r.POST("/options/:id/sell", handler.SellOption)
		r.POST("/options/:id/delist", handler.DelistOption)
		r.POST("/options/:id/resale/buy", handler.BuyListedOption)
		r.POST("/options/:id/call", handler.CallOption)
		r.POST("/options/:id/cash-out", handler.CashOut)
		r.POST("/options/:id/cancel", handler.CancelOption)
		r.POST("/options/:id/rebalance", handler.RebalanceOption)
		r.POST("/options/:id/rebalance/increase", handler.RebalanceIncrease)
	})
	m.Admin().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("/desk/audit", handler.Audit)
		r.POST("/desk/sweep", handler.Sweep)
	})

	return svc, NewSweeper(svc, cfg.SweepInterval, c.Logger), nil
}
