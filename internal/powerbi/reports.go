package powerbi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ListMyReports returns the reports in the caller's personal workspace.
// GET /reports
func (c *Client) ListMyReports(ctx context.Context, query *Query) ([]Report, error) {
	var envelope struct {
		Value []Report `json:"value"`
	}
	if err := c.get(ctx, "/reports", query, &envelope); err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return envelope.Value, nil
}

// ListReportUsersAsAdmin returns the principals with access to a report.
// GET /admin/reports/{id}/users
func (c *Client) ListReportUsersAsAdmin(ctx context.Context, reportID string) ([]ReportUser, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report id is required")
	}

	var envelope struct {
		Value []ReportUser `json:"value"`
	}
	path := "/admin/reports/" + url.PathEscape(reportID) + "/users"
	if err := c.get(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing users of report %s: %w", reportID, err)
	}
	return envelope.Value, nil
}

// ExportReport streams a report's .pbix file into w and returns the
// number of bytes written. workspaceID may be empty for reports in the
// caller's personal workspace.
// GET /reports/{id}/Export or GET /groups/{gid}/reports/{id}/Export
func (c *Client) ExportReport(ctx context.Context, workspaceID, reportID string, w io.Writer) (int64, error) {
	if reportID == "" {
		return 0, fmt.Errorf("report id is required")
	}

	path := "/reports/" + url.PathEscape(reportID) + "/Export"
	if workspaceID != "" {
		path = "/groups/" + url.PathEscape(workspaceID) + path
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("exporting report %s: %w", reportID, err)
	}
	defer body.Close()

	written, err := io.Copy(w, body)
	if err != nil {
		return written, fmt.Errorf("writing export of report %s: %w", reportID, err)
	}
	return written, nil
}
