package api

import (
	"fmt"
	"sort"
	"strings"
)

// Tenant represents an organisational unit that owns apps
type Tenant struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	// Apps is attached by the aggregation walk. A nil slice means the apps
	// could not be fetched, an empty slice means the tenant has none.
	Apps []App `json:"apps,omitempty"`
}

// App represents a timetable application bound to a host and a tenant
type App struct {
	ID          int    `json:"id"`
	TenantID    int    `json:"tenantId"`
	DisplayName string `json:"displayName"`
	Host        string `json:"host"`
	Enabled     bool   `json:"enabled"`
	Type        string `json:"type"`
	// Config is attached by the aggregation walk when requested
	Config Config `json:"config,omitempty"`
}

// AppTypeTimetable is the only app type the admin UI creates
const AppTypeTimetable = "timetable"

// Config is the flat option map associated with an app
type Config map[string]interface{}

// Strip removes bookkeeping properties that should not be displayed or
// submitted back to the server
func (c Config) Strip() Config {
	if c == nil {
		return nil
	}
	delete(c, "createdAt")
	delete(c, "updatedAt")
	return c
}

// Keys returns the option names in a stable order
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsBool reports whether the named option holds a boolean value
func (c Config) IsBool(key string) bool {
	_, ok := c[key].(bool)
	return ok
}

// Administrator represents a global administrator
type Administrator struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
}

// AdminList is a page of administrators
type AdminList struct {
	Rows []Administrator `json:"rows"`
}

// Me represents the current user of a session
type Me struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	Anon        bool   `json:"anon"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Anonymous is the user returned before anyone signs in
var Anonymous = Me{Anon: true}

// TriposNode is a course, subject or part in the tripos taxonomy
type TriposNode struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	ParentID    int    `json:"ParentId"`
	Type        string `json:"type"`
	CanManage   bool   `json:"canManage"`
}

// TriposStructure is the forest of courses, subjects and parts
type TriposStructure struct {
	Courses  []TriposNode `json:"courses"`
	Subjects []TriposNode `json:"subjects"`
	Parts    []TriposNode `json:"parts"`
}

// Series is a named collection of events inside a module
type Series struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}

// OrgUnit is a node of the organisational tree, typically a part or a module
type OrgUnit struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"displayName"`
	Type        string    `json:"type"`
	ParentID    int       `json:"ParentId"`
	Series      []Series  `json:"Series,omitempty"`
	Children    []OrgUnit `json:"children,omitempty"`
}

// Error represents an API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.Code, e.Message)
}

// SortTenants orders tenants by display name and the apps of every tenant
// by host. It is a presentation step applied after aggregation.
func SortTenants(tenants []Tenant) {
	sort.SliceStable(tenants, func(i, j int) bool {
		return strings.ToLower(tenants[i].DisplayName) < strings.ToLower(tenants[j].DisplayName)
	})
	for i := range tenants {
		apps := tenants[i].Apps
		sort.SliceStable(apps, func(a, b int) bool {
			return strings.ToLower(apps[a].Host) < strings.ToLower(apps[b].Host)
		})
	}
}
