// Package pagination provides utilities for CLI pagination, sorting, and result formatting.
//
// This package contains shared pagination logic used across CLI commands, including:
//   - PaginationParams: CLI flag parsing and validation
//   - PaginationMeta: Response metadata for paginated results
//   - Sorter: Generic sorting with field validation
//
// The pagination package ensures consistent pagination behavior across all pbicli commands
// that return lists of items (workspaces, apps, reports, etc.).
package pagination
