package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Pagination defaults and sort orders.
const (
	DefaultLimit     = 0 // 0 means no limit
	DefaultOffset    = 0
	DefaultSortField = ""
	DefaultSortOrder = "asc"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Common validation errors.
var (
	ErrInvalidLimit         = errors.New("limit cannot be negative")
	ErrInvalidOffset        = errors.New("offset cannot be negative")
	ErrInvalidPage          = errors.New("page cannot be negative")
	ErrInvalidPageSize      = errors.New("page-size cannot be negative")
	ErrMixedPaginationModes = errors.New("cannot use both offset-based (--offset) and page-based (--page) pagination")
	ErrPageSizeWithoutPage  = errors.New("--page-size requires --page to be set")
	ErrPageWithoutPageSize  = errors.New("--page requires --page-size to be set")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'name:desc')")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
)

// PaginationParams holds CLI pagination flags and provides validation.
// Supports two pagination modes:
//   - Offset-based: --limit and --offset
//   - Page-based: --page and --page-size
//
// These modes are mutually exclusive.
//
//nolint:revive // PaginationParams is the canonical name for this exported type.
type PaginationParams struct {
	// Limit is the maximum number of results to return (offset-based mode).
	Limit int

	// Offset is the number of results to skip (offset-based mode).
	Offset int

	// Page is the 1-based page number (page-based mode).
	Page int

	// PageSize is the number of results per page (page-based mode).
	PageSize int

	// SortField is the field name to sort by (e.g., "name", "lastUpdate").
	SortField string

	// SortOrder is the sort direction: "asc" or "desc".
	SortOrder string
}

// NewPaginationParams creates a PaginationParams with default values.
func NewPaginationParams() *PaginationParams {
	return &PaginationParams{
		Limit:     DefaultLimit,
		Offset:    DefaultOffset,
		Page:      0, // 0 means page-based mode not active
		PageSize:  0, // Requires Page > 0 to be valid
		SortField: DefaultSortField,
		SortOrder: DefaultSortOrder,
	}
}

// Validate checks if the pagination parameters are valid and consistent.
// Returns an error if validation fails.
func (p PaginationParams) Validate() error {
	if p.Limit < 0 {
		return ErrInvalidLimit
	}
	if p.Offset < 0 {
		return ErrInvalidOffset
	}
	if p.Page < 0 {
		return ErrInvalidPage
	}
	if p.PageSize < 0 {
		return ErrInvalidPageSize
	}

	// Check mutual exclusion of page and offset before pairing checks.
	if p.Page > 0 && p.Offset > 0 {
		return ErrMixedPaginationModes
	}

	if p.Page == 0 && p.PageSize > 0 {
		return ErrPageSizeWithoutPage
	}
	if p.PageSize == 0 && p.Page > 0 {
		return ErrPageWithoutPageSize
	}

	return nil
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses a sort string in the format "field" or "field:order".
// Examples: "name", "lastUpdate:desc", "type:asc"
// Returns the field name and order, or an error if invalid.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if sortStr == "" {
		return DefaultSortField, DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		// Just field name, use default order
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		// Field and order specified
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	return field, order, nil
}

// IsPageBased returns true if page-based pagination is active.
func (p PaginationParams) IsPageBased() bool {
	return p.Page > 0
}

// IsOffsetBased returns true if offset-based pagination is active.
func (p PaginationParams) IsOffsetBased() bool {
	return !p.IsPageBased()
}

// GetEffectiveLimit returns the effective limit based on pagination mode.
// For page-based mode, returns PageSize. For offset-based mode, returns Limit.
func (p PaginationParams) GetEffectiveLimit() int {
	if p.IsPageBased() {
		return p.PageSize
	}
	return p.Limit
}

// GetEffectiveOffset returns the effective offset based on pagination mode.
// For page-based mode, calculates offset from page number and page size.
// For offset-based mode, returns Offset.
func (p PaginationParams) GetEffectiveOffset() int {
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize
	}
	return p.Offset
}

// CalculateTotalPages calculates the total number of pages given a total result count.
// Only applicable for page-based mode. Returns 0 for offset-based mode.
func (p PaginationParams) CalculateTotalPages(totalResults int) int {
	if !p.IsPageBased() {
		return 0
	}
	if totalResults == 0 {
		return 0
	}
	pages := totalResults / p.PageSize
	if totalResults%p.PageSize > 0 {
		pages++
	}
	return pages
}

// IsEnabled returns true if any pagination parameters are set.
func (p PaginationParams) IsEnabled() bool {
	return p.Limit > 0 || p.Page > 0 || p.PageSize > 0 || p.Offset > 0
}

// CalculateOffsetLimit returns the effective offset and limit for pagination.
// Handles both page-based and offset-based pagination modes.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func (p PaginationParams) CalculateOffsetLimit() (offset, limit int) {
	if p.IsPageBased() {
		offset = (p.Page - 1) * p.PageSize
		// Use explicit limit if set, otherwise use page size
		if p.Limit > 0 {
			limit = p.Limit
		} else {
			limit = p.PageSize
		}
	} else {
		offset = p.Offset
		limit = p.Limit
	}

	return offset, limit
}

// ApplyToSlice applies pagination to a slice.
// Returns a new slice containing only the paginated items.
// For page-based pagination, caps offset to the last available page if beyond bounds.
func ApplyToSlice[T any](p PaginationParams, items []T) []T {
	if len(items) == 0 {
		return items
	}

	offset, limit := p.CalculateOffsetLimit()

	// For page-based pagination, cap offset to the last available page
	if p.IsPageBased() && offset >= len(items) {
		pageSize := p.PageSize
		if pageSize <= 0 {
			pageSize = len(items)
		}
		// Last page starts at the last multiple of pageSize below len(items)
		lastPageStart := ((len(items) - 1) / pageSize) * pageSize
		offset = lastPageStart
	}

	// For offset-based pagination, return empty if beyond length
	if offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}

	return items[offset:end]
}
