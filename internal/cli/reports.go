package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
	"github.com/rshade/pbicli/internal/powerbi"
)

// cacheKeyReports is the cache key for the caller's report list.
const cacheKeyReports = "reports"

// newReportsCmd creates the reports command group.
func newReportsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect and export Power BI reports",
	}

	cmd.AddCommand(
		newReportsListCmd(state),
		newReportsUsersCmd(state),
		newReportsExportCmd(state),
	)

	return cmd
}

type reportsListParams struct {
	cacheFlags
	paginationFlags
}

// newReportsListCmd creates the reports list command.
func newReportsListCmd(state *rootState) *cobra.Command {
	var params reportsListParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports in the personal workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeReportsList(cmd, state, params))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)
	registerPaginationFlags(cmd, &params.paginationFlags)

	return cmd
}

func executeReportsList(cmd *cobra.Command, state *rootState, params reportsListParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

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

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	log.Debug().Ctx(ctx).Str("operation", "reports_list").Msg("listing reports")

	reports, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      cacheKeyReports,
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.Report, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.ListMyReports(ctx, nil)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	reports, meta, err := applyListTransforms(reports, pageParams, reportSorter())
	if err != nil {
		return err
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), reportListOutput{
			Count:      len(reports),
			Reports:    reports,
			Pagination: meta,
		})
	}
	return renderReportsTable(cmd.OutOrStdout(), reports, meta)
}

// reportSorter defines the sortable report list fields.
func reportSorter() *pagination.Sorter[powerbi.Report] {
	return pagination.NewSorter(map[string]pagination.LessFunc[powerbi.Report]{
		"name": func(a, b powerbi.Report) bool { return a.Name < b.Name },
		"type": func(a, b powerbi.Report) bool { return a.ReportType < b.ReportType },
	})
}

// reportListOutput is the JSON shape of report list output.
type reportListOutput struct {
	Count      int                        `json:"count"`
	Reports    []powerbi.Report           `json:"reports"`
	Pagination *pagination.PaginationMeta `json:"pagination,omitempty"`
}

func renderReportsTable(w io.Writer, reports []powerbi.Report, meta *pagination.PaginationMeta) error {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports found.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tDATASET")
	fmt.Fprintln(tw, "--\t----\t----\t-------")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.ReportType, r.DatasetID)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing reports table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d reports\n", len(reports))
	renderPaginationFooter(w, meta)
	return nil
}

type reportsUsersParams struct {
	cacheFlags
}

// newReportsUsersCmd creates the reports users command.
func newReportsUsersCmd(state *rootState) *cobra.Command {
	var params reportsUsersParams

	cmd := &cobra.Command{
		Use:   "users <report-id>",
		Short: "List who can access a report (admin API)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeReportsUsers(cmd, state, params, args[0]))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)

	return cmd
}

func executeReportsUsers(cmd *cobra.Command, state *rootState, params reportsUsersParams, reportID string) error {
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
		Str("operation", "reports_users").
		Str("report_id", reportID).
		Msg("listing report users")

	users, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      "report_users_" + reportID,
		metadata: map[string]interface{}{"report_id": reportID},
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.ReportUser, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.ListReportUsersAsAdmin(ctx, reportID)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), reportUserListOutput{
			ReportID: reportID,
			Count:    len(users),
			Users:    users,
		})
	}
	return renderReportUsersTable(cmd.OutOrStdout(), users)
}

// reportUserListOutput is the JSON shape of reports users output.
type reportUserListOutput struct {
	ReportID string               `json:"report_id"`
	Count    int                  `json:"count"`
	Users    []powerbi.ReportUser `json:"users"`
}

func renderReportUsersTable(w io.Writer, users []powerbi.ReportUser) error {
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
		return fmt.Errorf("flushing report users table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d users\n", len(users))
	return nil
}

const reportsExportExample = `  # Export a personal-workspace report next to other saved output
  pbicli reports export 5b218778-e7a5-4d73-8187-f10824047715

  # Export a report from a shared workspace under a chosen name
  pbicli reports export 5b218778-e7a5-4d73-8187-f10824047715 \
    --workspace f089354e-8366-4e18-aea3-4cb4a3a50b48 --file-name sales.pbix`

type reportsExportParams struct {
	workspaceID string
	fileName    string
}

// newReportsExportCmd creates the reports export command.
func newReportsExportCmd(state *rootState) *cobra.Command {
	var params reportsExportParams

	cmd := &cobra.Command{
		Use:     "export <report-id>",
		Short:   "Download a report as a .pbix file",
		Example: reportsExportExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeReportsExport(cmd, state, params, args[0]))
		},
	}

	cmd.Flags().StringVar(&params.workspaceID, "workspace", "",
		"workspace the report lives in (defaults to the personal workspace)")
	cmd.Flags().StringVar(&params.fileName, "file-name", "",
		"destination file name (defaults to <report-id>.pbix)")

	return cmd
}

func executeReportsExport(cmd *cobra.Command, state *rootState, params reportsExportParams, reportID string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	start := time.Now()

	client, err := state.apiClient()
	if err != nil {
		return err
	}

	fileName := params.fileName
	if fileName == "" {
		fileName = reportID + ".pbix"
	}
	path := state.cfg.ResolveOutputPath(fileName)

	if dir := filepath.Dir(path); dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			return fmt.Errorf("creating output directory: %w", mkdirErr)
		}
	}

	log.Debug().Ctx(ctx).
		Str("operation", "reports_export").
		Str("report_id", reportID).
		Str("path", path).
		Msg("exporting report")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	written, err := client.ExportReport(ctx, params.workspaceID, reportID, f)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing export file: %w", closeErr)
	}
	if err != nil {
		// A partial .pbix is useless, remove it.
		_ = os.Remove(path)
		return err
	}

	log.Info().Ctx(ctx).
		Str("operation", "reports_export").
		Str("report_id", reportID).
		Int64("bytes", written).
		Dur("duration_ms", time.Since(start)).
		Msg("report export complete")

	msgPrinter.Fprintf(cmd.OutOrStdout(), "Exported report %s to %s (%d bytes)\n", reportID, path, written)
	return nil
}
