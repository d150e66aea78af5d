// Package session holds the per-page-session state of the UI: the API client
// carrying the user's cookies, the cached tenant and tripos trees, and the
// notifications waiting for the next rendered page.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/resilience"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/client"
)

// Context is the cache scope of one page session. The trees it holds are
// replaced wholesale by aggregation walks and read by renderers.
type Context struct {
	ID  string
	API client.API

	// TenantGate admits one tenant walk at a time
	TenantGate *resilience.Gate
	// TriposGate admits one tripos fetch at a time
	TriposGate *resilience.Gate

	Notifications *notify.Queue

	mu sync.RWMutex
	// tenants is walked without configuration, configured with it
	tenants    []api.Tenant
	configured []api.Tenant
	tripos     *api.TriposStructure
	me         *api.Me
	lastUsed   time.Time
}

// NewContext creates an empty session context
func NewContext(id string, apiClient client.API, logger *zap.Logger) *Context {
	return &Context{
		ID:            id,
		API:           apiClient,
		TenantGate:    resilience.NewGate("tenants:"+id, resilience.DefaultGateConfig(), logger),
		TriposGate:    resilience.NewGate("tripos:"+id, resilience.DefaultGateConfig(), logger),
		Notifications: notify.NewQueue(),
		lastUsed:      time.Now(),
	}
}

// Tenants returns the last aggregated tenant tree and whether one was cached.
// A tree with configuration also serves requests that do not need it; a
// tree without configuration never serves requests that do.
func (c *Context) Tenants(withConfig bool) ([]api.Tenant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached := c.configured
	if !withConfig && c.tenants != nil {
		cached = c.tenants
	}
	if cached == nil {
		return nil, false
	}
	tenants := make([]api.Tenant, len(cached))
	copy(tenants, cached)
	return tenants, true
}

// SetTenants replaces the cached tenant tree of the given kind
func (c *Context) SetTenants(tenants []api.Tenant, withConfig bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tenants == nil {
		tenants = []api.Tenant{}
	}
	if withConfig {
		c.configured = tenants
		return
	}
	c.tenants = tenants
}

// Tripos returns the cached tripos structure, or nil
func (c *Context) Tripos() *api.TriposStructure {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tripos
}

// SetTripos replaces the cached tripos structure
func (c *Context) SetTripos(structure *api.TriposStructure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tripos = structure
}

// CachedMe returns the cached current user and whether one was resolved
func (c *Context) CachedMe() (api.Me, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.me == nil {
		return api.Anonymous, false
	}
	return *c.me, true
}

// SetMe caches the current user
func (c *Context) SetMe(me *api.Me) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.me = me
}

// Invalidate drops every cached tree. Called after login and logout so the
// next page fetches data as the new user.
func (c *Context) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tenants = nil
	c.configured = nil
	c.tripos = nil
	c.me = nil
}

// Touch records that the session was used
func (c *Context) Touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastUsed = now
}

// LastUsed returns the time the session was last used
func (c *Context) LastUsed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUsed
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying the session
func WithContext(ctx context.Context, sess *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session carried by ctx
func FromContext(ctx context.Context) (*Context, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Context)
	return sess, ok && sess != nil
}
