package events

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/router"
	"golang.org/x/sync/errgroup"
)

// Container keys under which the module registers itself.
const (
	StoreKey    = "events.store"
	NotifierKey = "events.notifier"
)

// Module is the running event stream: the bus, its store and the websocket hub.
type Module struct {
	Bus      Bus
	Store    Store
	Notifier *Notifier
	Hub      *Hub
}

func Init(m *router.Mounter, c *deps.Container, cfg *Config) (*Module, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}

	bus, err := NewBus(cfg, c.Redis, c.Logger, c.Metrics)
	if err != nil {
		return nil, err
	}

	mod := &Module{
		Bus:      bus,
		Store:    NewStore(c.DB),
		Notifier: NewNotifier(bus, c.Logger, cfg.PublishTimeout),
		Hub:      NewHub(c.Logger, c.Metrics),
	}
	c.RegisterRepository(StoreKey, mod.Store)
	c.RegisterService(NotifierKey, mod.Notifier)

	handler := NewHandler(mod.Store)
	m.Public().Mount(func(r *gin.RouterGroup, _ *deps.Container) {
		r.GET("/events", handler.ListEvents)
		r.GET("/ws", mod.Hub.ServeWS)
	})
	return mod, nil
}

// Run feeds bus events to the websocket hub until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Hub.Run(ctx)
	})
	g.Go(func() error {
		return m.Bus.Subscribe(ctx, m.Hub.Dispatch)
	})
	return g.Wait()
}

// Close releases the bus.
func (m *Module) Close() error {
	return m.Bus.Close()
}
