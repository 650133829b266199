package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
	"github.com/rshade/pbicli/internal/powerbi"
)

// Cache keys for the app datasets. The admin view is a different dataset
// than the caller's own apps, so it versions independently.
const (
	cacheKeyApps      = "apps"
	cacheKeyAppsAdmin = "apps_admin"
)

// newAppsCmd creates the apps command group.
func newAppsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Inspect published Power BI apps",
	}

	cmd.AddCommand(
		newAppsListCmd(state),
		newAppsShowCmd(state),
		newAppsReportsCmd(state),
	)

	return cmd
}

const appsListExample = `  # Apps shared with you
  pbicli apps list

  # Every app in the organization (needs admin rights)
  pbicli apps list --admin --top 500`

type appsListParams struct {
	cacheFlags
	paginationFlags

	admin bool
	top   int
}

// newAppsListCmd creates the apps list command.
func newAppsListCmd(state *rootState) *cobra.Command {
	var params appsListParams

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List apps shared with the signed-in user",
		Example: appsListExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeAppsList(cmd, state, params))
		},
	}

	cmd.Flags().BoolVar(&params.admin, "admin", false,
		"list every app in the organization via the admin API")
	cmd.Flags().IntVar(&params.top, "top", 0,
		"maximum number of apps the admin API returns")
	registerCacheFlags(cmd, &params.cacheFlags)
	registerPaginationFlags(cmd, &params.paginationFlags)

	return cmd
}

func executeAppsList(cmd *cobra.Command, state *rootState, params appsListParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	if params.top > 0 && !params.admin {
		return errors.New("--top requires --admin, the user apps API returns everything")
	}

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

	key := cacheKeyApps
	metadata := map[string]interface{}{}
	if params.admin {
		key = cacheKeyAppsAdmin
		metadata["admin"] = true
		if params.top > 0 {
			metadata["top"] = params.top
		}
	}

	log.Debug().Ctx(ctx).
		Str("operation", "apps_list").
		Bool("admin", params.admin).
		Msg("listing apps")

	apps, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      key,
		metadata: metadata,
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.App, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		if params.admin {
			return client.ListAppsAsAdmin(ctx, params.top)
		}
		return client.ListApps(ctx)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	apps, meta, err := applyListTransforms(apps, pageParams, appSorter())
	if err != nil {
		return err
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), appListOutput{
			Count:      len(apps),
			Apps:       apps,
			Pagination: meta,
		})
	}
	return renderAppsTable(cmd.OutOrStdout(), apps, meta)
}

// appSorter defines the sortable app list fields.
func appSorter() *pagination.Sorter[powerbi.App] {
	return pagination.NewSorter(map[string]pagination.LessFunc[powerbi.App]{
		"name":        func(a, b powerbi.App) bool { return a.Name < b.Name },
		"publishedBy": func(a, b powerbi.App) bool { return a.PublishedBy < b.PublishedBy },
		"lastUpdate":  func(a, b powerbi.App) bool { return a.LastUpdate.Before(b.LastUpdate) },
	})
}

// appListOutput is the JSON shape of apps list output.
type appListOutput struct {
	Count      int                        `json:"count"`
	Apps       []powerbi.App              `json:"apps"`
	Pagination *pagination.PaginationMeta `json:"pagination,omitempty"`
}

func renderAppsTable(w io.Writer, apps []powerbi.App, meta *pagination.PaginationMeta) error {
	if len(apps) == 0 {
		fmt.Fprintln(w, "No apps found.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPUBLISHED BY\tLAST UPDATE")
	fmt.Fprintln(tw, "--\t----\t------------\t-----------")
	for _, a := range apps {
		lastUpdate := ""
		if !a.LastUpdate.IsZero() {
			lastUpdate = a.LastUpdate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.PublishedBy, lastUpdate)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing apps table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d apps\n", len(apps))
	renderPaginationFooter(w, meta)
	return nil
}

type appsShowParams struct {
	cacheFlags
}

// newAppsShowCmd creates the apps show command.
func newAppsShowCmd(state *rootState) *cobra.Command {
	var params appsShowParams

	cmd := &cobra.Command{
		Use:   "show <app-id>",
		Short: "Show one app's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeAppsShow(cmd, state, params, args[0]))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)

	return cmd
}

func executeAppsShow(cmd *cobra.Command, state *rootState, params appsShowParams, appID string) error {
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
		Str("operation", "apps_show").
		Str("app_id", appID).
		Msg("fetching app")

	app, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      "app_" + appID,
		metadata: map[string]interface{}{"app_id": appID},
		skipSave: params.noCache,
	}, func(ctx context.Context) (*powerbi.App, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.GetApp(ctx, appID)
	})
	if err != nil {
		return err
	}
	printCacheNotice(cmd, cacheResult)

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), app)
	}

	out := cmd.OutOrStdout()
	tw := newTable(out)
	fmt.Fprintf(tw, "ID:\t%s\n", app.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", app.Name)
	if app.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", app.Description)
	}
	if app.PublishedBy != "" {
		fmt.Fprintf(tw, "Published by:\t%s\n", app.PublishedBy)
	}
	if app.WorkspaceID != "" {
		fmt.Fprintf(tw, "Workspace:\t%s\n", app.WorkspaceID)
	}
	if !app.LastUpdate.IsZero() {
		fmt.Fprintf(tw, "Last update:\t%s\n", app.LastUpdate.Format("2006-01-02 15:04:05"))
	}
	if app.UsersCount > 0 {
		fmt.Fprintf(tw, "Users:\t%d\n", app.UsersCount)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing app details: %w", err)
	}
	return nil
}

type appsReportsParams struct {
	cacheFlags
}

// newAppsReportsCmd creates the apps reports command.
func newAppsReportsCmd(state *rootState) *cobra.Command {
	var params appsReportsParams

	cmd := &cobra.Command{
		Use:   "reports <app-id>",
		Short: "List the reports inside an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyExitError(executeAppsReports(cmd, state, params, args[0]))
		},
	}

	registerCacheFlags(cmd, &params.cacheFlags)

	return cmd
}

func executeAppsReports(cmd *cobra.Command, state *rootState, params appsReportsParams, appID string) error {
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
		Str("operation", "apps_reports").
		Str("app_id", appID).
		Msg("listing app reports")

	reports, cacheResult, err := fetchThroughCache(ctx, mgr, policy, fetchOptions{
		key:      "app_reports_" + appID,
		metadata: map[string]interface{}{"app_id": appID},
		skipSave: params.noCache,
	}, func(ctx context.Context) ([]powerbi.Report, error) {
		client, clientErr := state.apiClient()
		if clientErr != nil {
			return nil, clientErr
		}
		return client.ListAppReports(ctx, appID)
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
