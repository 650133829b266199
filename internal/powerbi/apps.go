package powerbi

import (
	"context"
	"fmt"
	"net/url"
)

// ListApps returns the apps the caller has installed.
// GET /apps
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var envelope struct {
		Value []App `json:"value"`
	}
	if err := c.get(ctx, "/apps", nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing apps: %w", err)
	}
	return envelope.Value, nil
}

// ListAppsAsAdmin returns apps across the organization. The admin API
// requires $top, so top must be positive.
// GET /admin/apps?$top={top}
func (c *Client) ListAppsAsAdmin(ctx context.Context, top int) ([]App, error) {
	if top <= 0 {
		return nil, fmt.Errorf("the admin apps API requires a positive top, got %d", top)
	}

	var envelope struct {
		Value []App `json:"value"`
	}
	if err := c.get(ctx, "/admin/apps", &Query{Top: top}, &envelope); err != nil {
		return nil, fmt.Errorf("listing apps as admin: %w", err)
	}
	return envelope.Value, nil
}

// GetApp returns one installed app.
// GET /apps/{id}
func (c *Client) GetApp(ctx context.Context, appID string) (*App, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}

	var app App
	if err := c.get(ctx, "/apps/"+url.PathEscape(appID), nil, &app); err != nil {
		return nil, fmt.Errorf("getting app %s: %w", appID, err)
	}
	return &app, nil
}

// ListAppReports returns the reports published in an app.
// GET /apps/{id}/reports
func (c *Client) ListAppReports(ctx context.Context, appID string) ([]Report, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}

	var envelope struct {
		Value []Report `json:"value"`
	}
	path := "/apps/" + url.PathEscape(appID) + "/reports"
	if err := c.get(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing reports of app %s: %w", appID, err)
	}
	return envelope.Value, nil
}
