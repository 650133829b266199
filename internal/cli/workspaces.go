package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/export"
	"github.com/rshade/pbicli/internal/logging"
	"github.com/rshade/pbicli/internal/powerbi"
)

// Cache keys for the workspace datasets.
const (
	cacheKeyWorkspaces = "workspaces"
)

// File types accepted by --file-type.
const (
	fileTypeJSON  = "json"
	fileTypeExcel = "excel"
)

// expandValues are the related collections the API can inline via $expand,
// in their canonical order.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var expandValues = []string{"users", "reports", "dashboards", "datasets", "dataflows", "workbooks"}

// newWorkspacesCmd creates the workspaces command group.
func newWorkspacesCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"groups"},
		Short:   "Inspect Power BI workspaces",
	}

	cmd.AddCommand(
		newWorkspacesListCmd(state),
		newWorkspacesUsersCmd(state),
		newWorkspacesReportsCmd(state),
		newWorkspacesFormatConvertCmd(state),
	)

	return cmd
}

const workspacesListExample = `  # All workspaces you can access
  pbicli workspaces list

  # Workspaces with every related collection inlined
  pbicli workspaces list --expand users,reports,dashboards,datasets,dataflows,workbooks

  # Filter server-side, sort client-side, save the raw JSON
  pbicli workspaces list --filter "contains(name,'Sales')" --sort name:desc --save

  # Save the listing as both JSON and a spreadsheet
  pbicli workspaces list --expand users --save --file-type json --file-type excel`

type workspacesListParams struct {
	cacheFlags
	paginationFlags

	top       int
	skip      int
	filter    string
	expand    string
	save      bool
	fileName  string
	fileTypes []string
}

// newWorkspacesListCmd creates the workspaces list command.
func newWorkspacesListCmd(state *rootState) *cobra.Command {
	var params workspacesListParams

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List workspaces the signed-in user can access",
		Example: workspacesListExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeWorkspacesList(cmd, state, params))
		},
	}

	cmd.Flags().IntVar(&params.top, "top", 0,
		"maximum number of workspaces the API returns")
	cmd.Flags().IntVar(&params.skip, "skip", 0,
		"number of workspaces the API skips")
	cmd.Flags().StringVar(&params.filter, "filter", "",
		"OData filter expression, e.g. \"contains(name,'Sales')\"")
	cmd.Flags().StringVar(&params.expand, "expand", "",
		"related collections to inline: "+strings.Join(expandValues, ", "))
	cmd.Flags().BoolVar(&params.save, "save", false,
		"write the results to the output folder")
	cmd.Flags().StringVar(&params.fileName, "file-name", "workspaces",
		"base file name used with --save; the extension follows --file-type")
	cmd.Flags().StringSliceVar(&params.fileTypes, "file-type", []string{fileTypeJSON},
		"file types written with --save: json, excel (repeatable)")
	registerCacheFlags(cmd, &params.cacheFlags)
	registerPaginationFlags(cmd, &params.paginationFlags)

	return cmd
}

func executeWorkspacesList(cmd *cobra.Command, state *rootState, params workspacesListParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	start := time.Now()

	policy, err := params.policy()
	if err != nil {
		return err
	}
	pageParams, err := params.params()
	if err != nil {
		return err
	}
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}
	expandQuery, err := parseExpand(params.expand)
	if err != nil {
		return err
	}
	if err := validateFileTypes(params.fileTypes); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	log.Debug().Ctx(ctx).
		Str("operation", "workspaces_list").
		Str("cache_policy", string(policy)).
		Str("filter", params.filter).
		Msg("listing workspaces")

	metadata := map[string]interface{}{}
	if params.filter != "" {
		metadata["filter"] = params.filter
	}
	if expandQuery != "" {
		metadata["expand"] = expandQuery
	}
	if params.top > 0 {
		metadata["top"] = params.top
	}
	if params.skip > 0 {
		metadata["skip"] = params.skip
	}

	workspaces, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      cacheKeyWorkspaces,
		metadata: metadata,
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.Workspace, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}

		query := &powerbi.Query{
			Top:    params.top,
			Skip:   params.skip,
			Filter: params.filter,
			Expand: expandQuery,
		}
		return client.ListWorkspaces(ctx, query)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	workspaces, meta, err := applyListTransforms(workspaces, pageParams, workspaceSorter())
	if err != nil {
		return err
	}

	if params.save {
		if saveErr := saveWorkspaceFiles(cmd, state.cfg, params, workspaces); saveErr != nil {
			return saveErr
		}
	}

	log.Info().Ctx(ctx).
		Str("operation", "workspaces_list").
		Int("count", len(workspaces)).
		Bool("from_cache", cacheResult.FromCache).
		Dur("duration_ms", time.Since(start)).
		Msg("workspaces list complete")

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), workspaceListOutput{
			Count:      len(workspaces),
			Workspaces: workspaces,
			Pagination: meta,
		})
	}
	return renderWorkspacesTable(cmd.OutOrStdout(), workspaces, meta)
}

// parseExpand validates the --expand list and returns it normalized for
// the $expand query parameter: trimmed, deduplicated, in canonical order.
func parseExpand(expand string) (string, error) {
	if expand == "" {
		return "", nil
	}

	requested := map[string]bool{}
	for _, part := range strings.Split(expand, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		valid := false
		for _, v := range expandValues {
			if part == v {
				valid = true
				break
			}
		}
		if !valid {
			return "", fmt.Errorf("unsupported expand value %q (supported: %s)",
				part, strings.Join(expandValues, ", "))
		}
		requested[part] = true
	}

	var normalized []string
	for _, v := range expandValues {
		if requested[v] {
			normalized = append(normalized, v)
		}
	}
	return strings.Join(normalized, ","), nil
}

// validateFileTypes rejects --file-type values other than json and excel
// before any API call is made.
func validateFileTypes(fileTypes []string) error {
	for _, fileType := range fileTypes {
		switch fileType {
		case fileTypeJSON, fileTypeExcel:
		default:
			return fmt.Errorf("unsupported file type %q (supported: json, excel)", fileType)
		}
	}
	return nil
}

// saveWorkspaceFiles writes the listing to the output folder once per
// requested file type, deriving the extension from the type.
func saveWorkspaceFiles(cmd *cobra.Command, cfg *config.Config, params workspacesListParams, workspaces []powerbi.Workspace) error {
	base := outputBaseName(params.fileName)

	for _, fileType := range params.fileTypes {
		var (
			path    string
			written int
			err     error
		)
		switch fileType {
		case fileTypeJSON:
			path, written, err = saveOutput(cfg, base+".json", workspaces)
		case fileTypeExcel:
			var data []byte
			data, err = export.ExcelBytes(export.WorkspaceSheets(workspaces))
			if err == nil {
				path, written, err = saveRawOutput(cfg, base+".xlsx", data)
			}
		}
		if err != nil {
			return err
		}
		msgPrinter.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", written, path)
	}
	return nil
}

// outputBaseName strips a known extension so --file-name works both as a
// bare base name and as a full file name.
func outputBaseName(name string) string {
	name = strings.TrimSuffix(name, ".json")
	return strings.TrimSuffix(name, ".xlsx")
}

// workspaceSorter defines the sortable workspace list fields.
func workspaceSorter() *pagination.Sorter[powerbi.Workspace] {
	return pagination.NewSorter(map[string]pagination.LessFunc[powerbi.Workspace]{
		"name":  func(a, b powerbi.Workspace) bool { return a.Name < b.Name },
		"type":  func(a, b powerbi.Workspace) bool { return a.Type < b.Type },
		"state": func(a, b powerbi.Workspace) bool { return a.State < b.State },
	})
}

// workspaceListOutput is the JSON shape of workspaces list output.
type workspaceListOutput struct {
	Count      int                        `json:"count"`
	Workspaces []powerbi.Workspace        `json:"workspaces"`
	Pagination *pagination.PaginationMeta `json:"pagination,omitempty"`
}

// expandColumn is one inlined-collection count column of the workspaces
// table.
type expandColumn struct {
	header  string
	present func(powerbi.Workspace) bool
	count   func(powerbi.Workspace) int
}

// activeExpandColumns returns the count columns for the collections that
// were actually inlined somewhere in the listing.
func activeExpandColumns(workspaces []powerbi.Workspace) []expandColumn {
	candidates := []expandColumn{
		{"USERS", func(ws powerbi.Workspace) bool { return ws.Users != nil },
			func(ws powerbi.Workspace) int { return len(ws.Users) }},
		{"REPORTS", func(ws powerbi.Workspace) bool { return ws.Reports != nil },
			func(ws powerbi.Workspace) int { return len(ws.Reports) }},
		{"DASHBOARDS", func(ws powerbi.Workspace) bool { return ws.Dashboards != nil },
			func(ws powerbi.Workspace) int { return len(ws.Dashboards) }},
		{"DATASETS", func(ws powerbi.Workspace) bool { return ws.Datasets != nil },
			func(ws powerbi.Workspace) int { return len(ws.Datasets) }},
		{"DATAFLOWS", func(ws powerbi.Workspace) bool { return ws.Dataflows != nil },
			func(ws powerbi.Workspace) int { return len(ws.Dataflows) }},
		{"WORKBOOKS", func(ws powerbi.Workspace) bool { return ws.Workbooks != nil },
			func(ws powerbi.Workspace) int { return len(ws.Workbooks) }},
	}

	var columns []expandColumn
	for _, c := range candidates {
		for _, ws := range workspaces {
			if c.present(ws) {
				columns = append(columns, c)
				break
			}
		}
	}
	return columns
}

func renderWorkspacesTable(w io.Writer, workspaces []powerbi.Workspace, meta *pagination.PaginationMeta) error {
	if len(workspaces) == 0 {
		fmt.Fprintln(w, "No workspaces found.")
		return nil
	}

	columns := activeExpandColumns(workspaces)

	headers := []string{"ID", "NAME", "TYPE", "STATE"}
	for _, c := range columns {
		headers = append(headers, c.header)
	}
	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Join(underline, "\t"))
	for _, ws := range workspaces {
		row := []string{ws.ID, ws.Name, ws.Type, ws.State}
		for _, c := range columns {
			row = append(row, strconv.Itoa(c.count(ws)))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing workspaces table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d workspaces\n", len(workspaces))
	renderPaginationFooter(w, meta)
	return nil
}

type workspacesUsersParams struct {
	cacheFlags
}

// newWorkspacesUsersCmd creates the workspaces users command.
func newWorkspacesUsersCmd(state *rootState) *cobra.Command {
	var params workspacesUsersParams

	cmd := &cobra.Command{
		Use:   "users <workspace-id>",
		Short: "List the users of a workspace and their access rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeWorkspacesUsers(cmd, state, params, args[0]))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)

	return cmd
}

func executeWorkspacesUsers(cmd *cobra.Command, state *rootState, params workspacesUsersParams, workspaceID string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	policy, err := params.policy()
	if err != nil {
		return err
	}
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	log.Debug().Ctx(ctx).
		Str("operation", "workspaces_users").
		Str("workspace_id", workspaceID).
		Msg("listing workspace users")

	users, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      "workspace_users_" + workspaceID,
		metadata: map[string]interface{}{"workspace_id": workspaceID},
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.GroupUser, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.ListWorkspaceUsers(ctx, workspaceID)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), groupUserListOutput{
			WorkspaceID: workspaceID,
			Count:       len(users),
			Users:       users,
		})
	}
	return renderGroupUsersTable(cmd.OutOrStdout(), users)
}

// groupUserListOutput is the JSON shape of workspaces users output.
type groupUserListOutput struct {
	WorkspaceID string              `json:"workspace_id"`
	Count       int                 `json:"count"`
	Users       []powerbi.GroupUser `json:"users"`
}

func renderGroupUsersTable(w io.Writer, users []powerbi.GroupUser) error {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "EMAIL\tNAME\tPRINCIPAL\tACCESS")
	fmt.Fprintln(tw, "-----\t----\t---------\t------")
	for _, u := range users {
		identifier := u.EmailAddress
		if identifier == "" {
			identifier = u.Identifier
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", identifier, u.DisplayName, u.PrincipalType, u.AccessRight)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing users table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d users\n", len(users))
	return nil
}

type workspacesReportsParams struct {
	cacheFlags
}

// newWorkspacesReportsCmd creates the workspaces reports command.
func newWorkspacesReportsCmd(state *rootState) *cobra.Command {
	var params workspacesReportsParams

	cmd := &cobra.Command{
		Use:   "reports <workspace-id>",
		Short: "List the reports in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeWorkspacesReports(cmd, state, params, args[0]))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)

	return cmd
}

func executeWorkspacesReports(cmd *cobra.Command, state *rootState, params workspacesReportsParams, workspaceID string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	policy, err := params.policy()
	if err != nil {
		return err
	}
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	log.Debug().Ctx(ctx).
		Str("operation", "workspaces_reports").
		Str("workspace_id", workspaceID).
		Msg("listing workspace reports")

	reports, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      "workspace_reports_" + workspaceID,
		metadata: map[string]interface{}{"workspace_id": workspaceID},
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.Report, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.ListWorkspaceReports(ctx, workspaceID, nil)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), reportListOutput{
			Count:   len(reports),
			Reports: reports,
		})
	}
	return renderReportsTable(cmd.OutOrStdout(), reports, nil)
}

const workspacesFormatConvertExample = `  # Convert a saved workspaces listing to a spreadsheet
  pbicli workspaces format-convert --source workspaces.json --target workspaces.xlsx`

type workspacesFormatConvertParams struct {
	source string
	target string
	format string
}

// newWorkspacesFormatConvertCmd creates the workspaces format-convert
// command. It works entirely on local files and needs no credentials.
func newWorkspacesFormatConvertCmd(_ *rootState) *cobra.Command {
	var params workspacesFormatConvertParams

	cmd := &cobra.Command{
		Use:     "format-convert",
		Short:   "Convert a saved workspaces listing from JSON to a spreadsheet",
		Example: workspacesFormatConvertExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeWorkspacesFormatConvert(cmd, params)
		},
	}

	cmd.Flags().StringVarP(&params.source, "source", "s", "",
		"source JSON file written by workspaces list --save")
	cmd.Flags().StringVarP(&params.target, "target", "t", "",
		"target .xlsx file")
	cmd.Flags().StringVar(&params.format, "format", fileTypeExcel,
		"target format (only excel)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func executeWorkspacesFormatConvert(cmd *cobra.Command, params workspacesFormatConvertParams) error {
	if params.format != fileTypeExcel {
		return fmt.Errorf("unsupported target format %q (supported: excel)", params.format)
	}

	workspaces, err := readWorkspacesFile(params.source)
	if err != nil {
		return err
	}

	data, err := export.ExcelBytes(export.WorkspaceSheets(workspaces))
	if err != nil {
		return err
	}

	if writeErr := os.WriteFile(params.target, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing %s: %w", params.target, writeErr)
	}

	msgPrinter.Fprintf(cmd.ErrOrStderr(), "Converted %s to %s (%d workspaces)\n",
		params.source, params.target, len(workspaces))
	return nil
}

// readWorkspacesFile loads a workspace listing from a JSON file: either
// the bare array workspaces list --save writes, or a raw API envelope
// carrying a value field.
func readWorkspacesFile(path string) ([]powerbi.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var workspaces []powerbi.Workspace
	if err := json.Unmarshal(data, &workspaces); err == nil {
		return workspaces, nil
	}

	var envelope struct {
		Value []powerbi.Workspace `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return envelope.Value, nil
}
