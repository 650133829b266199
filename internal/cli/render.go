package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/config"
)

// tabPadding is the number of spaces between tabwriter columns.
const tabPadding = 2

// msgPrinter formats row and byte counts with thousands separators.
var msgPrinter = message.NewPrinter(language.English) //nolint:gochecknoglobals // Shared formatter, stateless after construction.

// newTable returns a tabwriter configured the way every pbicli table is.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
}

// renderJSON writes v as indented JSON to w.
func renderJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		if isBrokenPipe(err) {
			return nil
		}
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// isBrokenPipe detects EPIPE so piping into head does not surface an error.
func isBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.EPIPE {
		return true
	}
	return strings.Contains(err.Error(), "broken pipe")
}

// saveOutput writes v as indented JSON to the resolved output path and
// returns the path and the number of bytes written.
func saveOutput(cfg *config.Config, name string, v interface{}) (string, int, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("marshaling output for %s: %w", name, err)
	}
	return saveRawOutput(cfg, name, append(data, '\n'))
}

// saveRawOutput writes pre-rendered bytes to the resolved output path and
// returns the path and the number of bytes written.
func saveRawOutput(cfg *config.Config, name string, data []byte) (string, int, error) {
	path := cfg.ResolveOutputPath(name)

	if dir := filepath.Dir(path); dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			return "", 0, fmt.Errorf("creating output directory: %w", mkdirErr)
		}
	}
	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return "", 0, fmt.Errorf("writing output file: %w", writeErr)
	}

	return path, len(data), nil
}

// renderPaginationFooter prints the page position line under a table.
func renderPaginationFooter(w io.Writer, meta *pagination.PaginationMeta) {
	if meta == nil {
		return
	}
	msgPrinter.Fprintf(w, "Page %d of %d (%d items total)\n",
		meta.CurrentPage, meta.TotalPages, meta.TotalItems)
}
