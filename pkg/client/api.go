package client

import (
	"context"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// API is the set of remote operations the UI consumes. *Client implements
// it; tests substitute mocks.
type API interface {
	ListTenants(ctx context.Context) ([]api.Tenant, error)
	CreateTenant(ctx context.Context, displayName string) (*api.Tenant, error)
	ListApps(ctx context.Context, tenantID int) ([]api.App, error)
	CreateApp(ctx context.Context, displayName, host string, tenantID int, appType string) (*api.App, error)
	UpdateApp(ctx context.Context, appID int, displayName string, enabled bool, host string) error
	GetConfig(ctx context.Context, appID int) (api.Config, error)
	UpdateConfig(ctx context.Context, appID int, config api.Config) error
	ListAdmins(ctx context.Context, q string, start int) (*api.AdminList, error)
	CreateAdmin(ctx context.Context, username, displayName, password string) error
	UpdateAdmin(ctx context.Context, userID int, displayName string) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*api.Me, error)
	GetTriposStructure(ctx context.Context) (*api.TriposStructure, error)
	GetOrgUnit(ctx context.Context, id int, includeSeries bool) (*api.OrgUnit, error)
	ListModules(ctx context.Context, partID int) ([]api.OrgUnit, error)
	ListSubscribedSeries(ctx context.Context) ([]int, error)
	SubscribeSeries(ctx context.Context, seriesID int) error
	UnsubscribeSeries(ctx context.Context, seriesID int) error
}

var _ API = (*Client)(nil)
