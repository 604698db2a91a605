package desk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/router"
)

// Container keys under which the module registers itself.
const (
	ServiceKey    = "desk.service"
	RepositoryKey = "desk.repository"
)

// AdminOnly returns middleware that admits only the desk admin.
func AdminOnly(svc Service) gin.HandlerFunc {
	return api.RequireAddress(func(c *gin.Context) (common.Address, error) {
		return svc.Admin(c.Request.Context())
	}, "Only the desk admin can do this")
}

// Init wires the desk and installs the admin middleware on m. It needs the
// events and pricing modules registered first.
func Init(m *router.Mounter, c *deps.Container, cfg *Config) (Service, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid desk configuration: %w", err)
	}

	prices, err := deps.Service[pricing.Service](c, pricing.ServiceKey)
	if err != nil {
		return nil, err
	}
	notifier, err := deps.Service[*events.Notifier](c, events.NotifierKey)
	if err != nil {
		return nil, err
	}

	repo := NewRepository(c.DB)
	svc := NewService(repo, prices.Calculator(), cfg, notifier, c.Logger, c.Metrics)
	c.RegisterRepository(RepositoryKey, repo)
	c.RegisterService(ServiceKey, svc)
	m.WithAdmin(AdminOnly(svc))

	handler := NewHandler(svc)
	m.Public().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("/desk", handler.GetInfo)
	})
	if cfg.APIDeploy {
		m.Authenticated().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
			r.POST("/desk/deploy", handler.Deploy)
		})
	}
	return svc, nil
}
