package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// Client is a Grasshopper REST API client. Each client carries its own
// cookie jar so that one client represents one authenticated session.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithTimeout sets the timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets the round tripper used for requests
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a new Grasshopper API client
func NewClient(baseURL string, options ...ClientOption) *Client {
	// cookiejar.New only fails on a bad PublicSuffixList, and we pass none
	jar, _ := cookiejar.New(nil)

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// ListTenants returns all tenants
func (c *Client) ListTenants(ctx context.Context) ([]api.Tenant, error) {
	var tenants []api.Tenant
	if err := c.getJSON(ctx, "/api/tenants", nil, &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// CreateTenant creates a tenant with the given display name
func (c *Client) CreateTenant(ctx context.Context, displayName string) (*api.Tenant, error) {
	var tenant api.Tenant
	form := url.Values{"displayName": {displayName}}
	if err := c.postForm(ctx, "/api/tenants", form, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListApps returns the apps of a tenant
func (c *Client) ListApps(ctx context.Context, tenantID int) ([]api.App, error) {
	var apps []api.App
	query := url.Values{"tenantId": {strconv.Itoa(tenantID)}}
	if err := c.getJSON(ctx, "/api/apps", query, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// CreateApp creates an app inside a tenant
func (c *Client) CreateApp(ctx context.Context, displayName, host string, tenantID int, appType string) (*api.App, error) {
	var app api.App
	form := url.Values{
		"displayName": {displayName},
		"host":        {host},
		"tenantId":    {strconv.Itoa(tenantID)},
		"type":        {appType},
	}
	if err := c.postForm(ctx, "/api/apps", form, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApp updates the mutable properties of an app
func (c *Client) UpdateApp(ctx context.Context, appID int, displayName string, enabled bool, host string) error {
	form := url.Values{
		"displayName": {displayName},
		"enabled":     {strconv.FormatBool(enabled)},
		"host":        {host},
	}
	return c.postForm(ctx, fmt.Sprintf("/api/apps/%d", appID), form, nil)
}

// GetConfig returns the configuration of an app
func (c *Client) GetConfig(ctx context.Context, appID int) (api.Config, error) {
	var config api.Config
	query := url.Values{"app": {strconv.Itoa(appID)}}
	if err := c.getJSON(ctx, "/api/config", query, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// UpdateConfig submits configuration values for an app
func (c *Client) UpdateConfig(ctx context.Context, appID int, config api.Config) error {
	form := url.Values{"app": {strconv.Itoa(appID)}}
	for key, value := range config {
		form.Set(key, fmt.Sprint(value))
	}
	return c.postForm(ctx, "/api/config", form, nil)
}

// ListAdmins returns a page of global administrators. Both the query and the
// start cursor are optional.
func (c *Client) ListAdmins(ctx context.Context, q string, start int) (*api.AdminList, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	if start > 0 {
		query.Set("start", strconv.Itoa(start))
	}

	var admins api.AdminList
	if err := c.getJSON(ctx, "/api/admins", query, &admins); err != nil {
		return nil, err
	}
	return &admins, nil
}

// CreateAdmin creates a global administrator
func (c *Client) CreateAdmin(ctx context.Context, username, displayName, password string) error {
	form := url.Values{
		"username":    {username},
		"displayName": {displayName},
		"password":    {password},
	}
	return c.postForm(ctx, "/api/admins", form, nil)
}

// UpdateAdmin updates the display name of a global administrator
func (c *Client) UpdateAdmin(ctx context.Context, userID int, displayName string) error {
	form := url.Values{"displayName": {displayName}}
	return c.postForm(ctx, fmt.Sprintf("/api/admins/%d", userID), form, nil)
}

// Login authenticates using the local authentication strategy
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	return c.postForm(ctx, "/api/auth/login", form, nil)
}

// Logout ends the authenticated session
func (c *Client) Logout(ctx context.Context) error {
	return c.postForm(ctx, "/api/auth/logout", url.Values{}, nil)
}

// Me returns the user the session is authenticated as
func (c *Client) Me(ctx context.Context) (*api.Me, error) {
	var me api.Me
	if err := c.getJSON(ctx, "/api/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetTriposStructure returns the courses, subjects and parts
func (c *Client) GetTriposStructure(ctx context.Context) (*api.TriposStructure, error) {
	var structure api.TriposStructure
	if err := c.getJSON(ctx, "/api/orgunit/tripos", nil, &structure); err != nil {
		return nil, err
	}
	return &structure, nil
}

// GetOrgUnit returns an organisational unit, optionally with its series
func (c *Client) GetOrgUnit(ctx context.Context, id int, includeSeries bool) (*api.OrgUnit, error) {
	var unit api.OrgUnit
	query := url.Values{"includeSeries": {strconv.FormatBool(includeSeries)}}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/orgunit/%d", id), query, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListModules returns the modules of a part together with their series
func (c *Client) ListModules(ctx context.Context, partID int) ([]api.OrgUnit, error) {
	var modules []api.OrgUnit
	query := url.Values{
		"parent":        {strconv.Itoa(partID)},
		"type":          {"module"},
		"includeSeries": {"true"},
	}
	if err := c.getJSON(ctx, "/api/orgunit", query, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// ListSubscribedSeries returns the ids of the series in the user's calendar
func (c *Client) ListSubscribedSeries(ctx context.Context) ([]int, error) {
	var series []api.Series
	if err := c.getJSON(ctx, "/api/me/series", nil, &series); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(series))
	for _, s := range series {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// SubscribeSeries adds a series to the user's calendar
func (c *Client) SubscribeSeries(ctx context.Context, seriesID int) error {
	return c.postForm(ctx, fmt.Sprintf("/api/series/%d/subscribe", seriesID), url.Values{}, nil)
}

// UnsubscribeSeries removes a series from the user's calendar
func (c *Client) UnsubscribeSeries(ctx context.Context, seriesID int) error {
	return c.postForm(ctx, fmt.Sprintf("/api/series/%d/unsubscribe", seriesID), url.Values{}, nil)
}

// getJSON performs a GET request and decodes the JSON response into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// postForm performs a form encoded POST request. The response body is
// decoded into out when out is not nil.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &api.Error{Code: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = resp.Status
			}
		}
		apiErr.Code = resp.StatusCode
		return nil, apiErr
	}

	return resp, nil
}
