package router

import (
	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/internal/deps"
)

// MountFunc represents a function that mounts routes for a module
type MountFunc func(*gin.RouterGroup, *deps.Container)

// Mounter builds the /api/v1 route groups. The auth and admin middleware
// are supplied by main so this package stays free of feature imports.
type Mounter struct {
	engine    *gin.Engine
	container *deps.Container
	basePath  string
	auth      gin.HandlerFunc
	admin     gin.HandlerFunc
}

func NewMounter(engine *gin.Engine, container *deps.Container) *Mounter {
	return &Mounter{engine: engine, container: container, basePath: "/api/v1"}
}

// WithAuth sets the middleware that authenticates a request.
func (m *Mounter) WithAuth(auth gin.HandlerFunc) *Mounter {
	m.auth = auth
	return m
}

// WithAdmin sets the middleware that restricts a group to the desk admin.
func (m *Mounter) WithAdmin(admin gin.HandlerFunc) *Mounter {
	m.admin = admin
	return m
}

// Public routes - no authentication required
func (m *Mounter) Public() *RouteGroup {
	return &RouteGroup{group: m.engine.Group(m.basePath), container: m.container}
}

// Authenticated routes - requires valid token
func (m *Mounter) Authenticated() *RouteGroup {
	group := m.engine.Group(m.basePath)
	if m.auth != nil {
		group.Use(m.auth)
	}
	return &RouteGroup{group: group, container: m.container}
}

// Admin routes - requires a valid token that belongs to the desk admin
func (m *Mounter) Admin() *RouteGroup {
	rg := m.Authenticated()
	if m.admin != nil {
		rg.group.Use(m.admin)
	}
	return rg
}

type RouteGroup struct {
	group     *gin.RouterGroup
	container *deps.Container
}

// Mount provides a fluent interface for mounting modules
func (rg *RouteGroup) Mount(mountFuncs ...MountFunc) *RouteGroup {
	for _, fn := range mountFuncs {
		fn(rg.group, rg.container)
	}
	return rg
}

// Group creates a sub-group for organizing routes
func (rg *RouteGroup) Group(path string, middleware ...gin.HandlerFunc) *RouteGroup {
	subGroup := rg.group.Group(path, middleware...)
	return &RouteGroup{group: subGroup, container: rg.container}
}

// Use adds middleware to the group
func (rg *RouteGroup) Use(middleware ...gin.HandlerFunc) *RouteGroup {
	rg.group.Use(middleware...)
	return rg
}
