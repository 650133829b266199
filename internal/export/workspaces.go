package export

import (
	"strconv"

	"github.com/rshade/pbicli/internal/powerbi"
)

// WorkspaceSheets flattens an (optionally expanded) workspace listing into
// sheets: the workspaces themselves first, then one sheet per inlined
// collection that appears anywhere in the listing. Collection rows carry
// the owning workspace's id and name so every sheet stands alone.
func WorkspaceSheets(workspaces []powerbi.Workspace) []Sheet {
	sheets := []Sheet{workspaceSheet(workspaces)}

	if s, ok := userSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	if s, ok := reportSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	if s, ok := dashboardSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	if s, ok := datasetSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	if s, ok := dataflowSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	if s, ok := workbookSheet(workspaces); ok {
		sheets = append(sheets, s)
	}
	return sheets
}

func workspaceSheet(workspaces []powerbi.Workspace) Sheet {
	s := Sheet{
		Name: "workspaces",
		Header: []string{
			"id", "name", "type", "state",
			"is_read_only", "is_on_dedicated_capacity", "capacity_id",
		},
	}
	for _, ws := range workspaces {
		s.Rows = append(s.Rows, []string{
			ws.ID, ws.Name, ws.Type, ws.State,
			strconv.FormatBool(ws.IsReadOnly),
			strconv.FormatBool(ws.IsOnDedicatedCapacity),
			ws.CapacityID,
		})
	}
	return s
}

func userSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "users",
		Header: []string{
			"workspace_id", "workspace_name",
			"email", "display_name", "identifier", "principal_type", "access_right",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Users != nil {
			present = true
		}
		for _, u := range ws.Users {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				u.EmailAddress, u.DisplayName, u.Identifier, u.PrincipalType, u.AccessRight,
			})
		}
	}
	return s, present
}

func reportSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "reports",
		Header: []string{
			"workspace_id", "workspace_name",
			"id", "name", "report_type", "dataset_id", "web_url",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Reports != nil {
			present = true
		}
		for _, r := range ws.Reports {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				r.ID, r.Name, r.ReportType, r.DatasetID, r.WebURL,
			})
		}
	}
	return s, present
}

func dashboardSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "dashboards",
		Header: []string{
			"workspace_id", "workspace_name",
			"id", "display_name", "is_read_only", "web_url",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Dashboards != nil {
			present = true
		}
		for _, d := range ws.Dashboards {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				d.ID, d.DisplayName, strconv.FormatBool(d.IsReadOnly), d.WebURL,
			})
		}
	}
	return s, present
}

func datasetSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "datasets",
		Header: []string{
			"workspace_id", "workspace_name",
			"id", "name", "configured_by", "is_refreshable", "web_url",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Datasets != nil {
			present = true
		}
		for _, d := range ws.Datasets {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				d.ID, d.Name, d.ConfiguredBy, strconv.FormatBool(d.IsRefreshable), d.WebURL,
			})
		}
	}
	return s, present
}

func dataflowSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "dataflows",
		Header: []string{
			"workspace_id", "workspace_name",
			"object_id", "name", "description",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Dataflows != nil {
			present = true
		}
		for _, d := range ws.Dataflows {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				d.ObjectID, d.Name, d.Description,
			})
		}
	}
	return s, present
}

func workbookSheet(workspaces []powerbi.Workspace) (Sheet, bool) {
	s := Sheet{
		Name: "workbooks",
		Header: []string{
			"workspace_id", "workspace_name",
			"name", "dataset_id",
		},
	}
	present := false
	for _, ws := range workspaces {
		if ws.Workbooks != nil {
			present = true
		}
		for _, wb := range ws.Workbooks {
			s.Rows = append(s.Rows, []string{
				ws.ID, ws.Name,
				wb.Name, wb.DatasetID,
			})
		}
	}
	return s, present
}
