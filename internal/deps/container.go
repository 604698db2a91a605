package deps

import (
	"fmt"
	"time"

	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/internal/sanitizer"
	"github.com/joefazee/optionsdesk/internal/security"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all shared dependencies
type Container struct {
	DB         *gorm.DB
	TokenMaker security.Maker
	Sanitizer  sanitizer.HTMLStripperer
	Logger     logger.Logger
	Cache      cache.Cache[string]
	Redis      *redis.Client
	Metrics    *metrics.Registry
	Clock      func() time.Time

	// Store repositories as interfaces to avoid imports
	repositories map[string]interface{}
	services     map[string]interface{}
}

func NewContainer(db *gorm.DB,
	tokenMaker security.Maker,
	sanitizer sanitizer.HTMLStripperer,
	logger logger.Logger,
	cache cache.Cache[string],
) *Container {
	return &Container{
		DB:           db,
		TokenMaker:   tokenMaker,
		Sanitizer:    sanitizer,
		Logger:       logger,
		Cache:        cache,
		Clock:        time.Now,
		repositories: make(map[string]interface{}),
		services:     make(map[string]interface{}),
	}
}

// Now returns the container clock, defaulting to time.Now.
func (c *Container) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// RegisterRepository stores a repository with a key
func (c *Container) RegisterRepository(key string, repo interface{}) {
	c.repositories[key] = repo
}

// GetRepository retrieves a repository by key
func (c *Container) GetRepository(key string) interface{} {
	return c.repositories[key]
}

// RegisterService stores a service with a key
func (c *Container) RegisterService(key string, service interface{}) {
	c.services[key] = service
}

// GetService retrieves a service by key
func (c *Container) GetService(key string) interface{} {
	return c.services[key]
}

// Service resolves a registered service and asserts its type.
func Service[T any](c *Container, key string) (T, error) {
	var zero T
	raw, ok := c.services[key]
	if !ok {
		return zero, fmt.Errorf("service %q not registered", key)
	}
	svc, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has type %T", key, raw)
	}
	return svc, nil
}

// Repository resolves a registered repository and asserts its type.
func Repository[T any](c *Container, key string) (T, error) {
	var zero T
	raw, ok := c.repositories[key]
	if !ok {
		return zero, fmt.Errorf("repository %q not registered", key)
	}
	repo, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("repository %q has type %T", key, raw)
	}
	return repo, nil
}
