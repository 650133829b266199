package pagination

import (
	"sort"
)

// LessFunc reports whether a orders before b when sorting ascending.
type LessFunc[T any] func(a, b T) bool

// Sorter sorts slices by named fields using registered comparison functions.
type Sorter[T any] struct {
	fields map[string]LessFunc[T]
}

// NewSorter creates a Sorter from a map of field name to comparison function.
func NewSorter[T any](fields map[string]LessFunc[T]) *Sorter[T] {
	return &Sorter[T]{fields: fields}
}

// IsValidField checks if the field is valid for sorting.
func (s *Sorter[T]) IsValidField(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// GetValidFields returns all valid sort fields.
func (s *Sorter[T]) GetValidFields() []string {
	fields := make([]string, 0, len(s.fields))
	for field := range s.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields) // Return in consistent order
	return fields
}

// Sort sorts items by the specified field and order.
// Returns a new sorted slice; does not modify the original.
// If field is invalid, returns the original slice unchanged.
func (s *Sorter[T]) Sort(items []T, field, order string) []T {
	less, ok := s.fields[field]
	if !ok {
		return items
	}

	// Make a copy to avoid modifying the original
	sorted := make([]T, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		// For descending order, swap i and j in comparisons to maintain stability
		if order == SortOrderDesc {
			i, j = j, i
		}
		return less(sorted[i], sorted[j])
	})

	return sorted
}
