package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pbicli/internal/auth"
	"github.com/rshade/pbicli/internal/cli"
)

// setupCommandTest points every file the CLI touches at a throwaway
// directory: credentials, configuration, and the cache all live under the
// returned home. It returns the home directory so tests can inspect what
// commands wrote.
func setupCommandTest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PBICLI_HOME", home)
	t.Setenv("PBICLI_CONFIG", filepath.Join(home, "config.yaml"))
	// Keep command logging out of test output.
	t.Setenv("PBICLI_LOG_LEVEL", "error")
	return home
}

// seedCredential stores a non-expired token for profile so commands that
// call the API can authenticate.
func seedCredential(t *testing.T, profile string) {
	t.Helper()

	store, err := auth.NewStore("")
	require.NoError(t, err)
	require.NoError(t, store.Set(&auth.Credential{
		Profile:     profile,
		AccessToken: "test-token",
		Identity:    "jane@contoso.com",
		TenantID:    "tenant-1",
		AcquiredAt:  time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Save())
}

// startAPIServer serves handler as the Power BI API for the duration of the
// test.
func startAPIServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("PBICLI_API_URL", srv.URL)
	return srv
}

// runCommand executes one full pbicli invocation, from argument parsing
// through rendering, and captures stdout and stderr separately.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmdWithArgs("test", append([]string{"pbicli"}, args...), os.LookupEnv)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmdVersion(t *testing.T) {
	setupCommandTest(t)

	out, _, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "pbicli version test")
}

func TestRootCmdHelpListsCommandGroups(t *testing.T) {
	setupCommandTest(t)

	out, _, err := runCommand(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"auth", "workspaces", "apps", "reports", "users", "cache", "config", "tui"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmdUnknownCommand(t *testing.T) {
	setupCommandTest(t)

	_, _, err := runCommand(t, "datasets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

// TestRootCmdUnsupportedOutputFormat verifies formats are rejected before
// any credential or API access happens.
func TestRootCmdUnsupportedOutputFormat(t *testing.T) {
	setupCommandTest(t)

	_, _, err := runCommand(t, "auth", "status", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
}
