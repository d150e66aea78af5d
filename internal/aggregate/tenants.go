package aggregate

import (
	"context"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

var (
	// AppsLevel is the tenant → apps level
	AppsLevel = Level{Name: "apps", FailedTitle: "Could not fetch system apps"}
	// ConfigLevel is the app → config level
	ConfigLevel = Level{Name: "config", FailedTitle: "Could not fetch system configuration"}
)

// TenantSource fetches the nested resources of tenants
type TenantSource interface {
	ListApps(ctx context.Context, tenantID int) ([]api.App, error)
	GetConfig(ctx context.Context, appID int) (api.Config, error)
}

// Tenants attaches apps to every tenant and, when withConfig is set, the
// configuration to every app. The input slice is not modified; the result is
// a freshly built tree in input order.
func (w *Walker) Tenants(ctx context.Context, scope Scope, n notify.Notifier, src TenantSource, tenants []api.Tenant, withConfig bool) ([]api.Tenant, error) {
	fetchers := Fetchers[api.Tenant, api.App, api.Config]{
		ChildLevel: AppsLevel,
		Children: func(ctx context.Context, tenant api.Tenant) ([]api.App, error) {
			return src.ListApps(ctx, tenant.ID)
		},
	}
	if withConfig {
		fetchers.LeafLevel = ConfigLevel
		fetchers.Leaf = func(ctx context.Context, app api.App) (api.Config, error) {
			return src.GetConfig(ctx, app.ID)
		}
	}

	branches, err := Walk(ctx, w, scope, n, tenants, fetchers)
	if err != nil {
		return nil, err
	}

	tree := make([]api.Tenant, 0, len(branches))
	for _, branch := range branches {
		tenant := branch.Parent
		tenant.Apps = nil
		if branch.Err == nil {
			tenant.Apps = make([]api.App, 0, len(branch.Children))
			for _, twig := range branch.Children {
				app := twig.Child
				app.Config = nil
				if twig.Leaf != nil {
					app.Config = twig.Leaf.Strip()
				}
				tenant.Apps = append(tenant.Apps, app)
			}
		}
		tree = append(tree, tenant)
	}

	return tree, nil
}
