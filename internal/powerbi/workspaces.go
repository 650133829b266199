package powerbi

import (
	"context"
	"fmt"
	"net/url"
)

// ListWorkspaces returns the workspaces the caller belongs to.
// GET /groups
func (c *Client) ListWorkspaces(ctx context.Context, query *Query) ([]Workspace, error) {
	var envelope struct {
		Value []Workspace `json:"value"`
	}
	if err := c.get(ctx, "/groups", query, &envelope); err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return envelope.Value, nil
}

// ListWorkspaceUsers returns the principals with access to a workspace.
// GET /groups/{id}/users
func (c *Client) ListWorkspaceUsers(ctx context.Context, workspaceID string) ([]GroupUser, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	var envelope struct {
		Value []GroupUser `json:"value"`
	}
	path := "/groups/" + url.PathEscape(workspaceID) + "/users"
	if err := c.get(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing users of workspace %s: %w", workspaceID, err)
	}
	return envelope.Value, nil
}

// ListWorkspaceReports returns the reports in a workspace.
// GET /groups/{id}/reports
func (c *Client) ListWorkspaceReports(ctx context.Context, workspaceID string, query *Query) ([]Report, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	var envelope struct {
		Value []Report `json:"value"`
	}
	path := "/groups/" + url.PathEscape(workspaceID) + "/reports"
	if err := c.get(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("listing reports of workspace %s: %w", workspaceID, err)
	}
	return envelope.Value, nil
}
