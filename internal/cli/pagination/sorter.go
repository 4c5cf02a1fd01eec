package pagination

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// CompareFunc orders two items like cmp.Compare.
type CompareFunc[T any] func(a, b T) int

// Sorter sorts a list by one of a fixed set of named fields.
type Sorter[T any] struct {
	fields map[string]CompareFunc[T]
}

// NewSorter creates a Sorter over the given fields.
func NewSorter[T any](fields map[string]CompareFunc[T]) *Sorter[T] {
	return &Sorter[T]{fields: fields}
}

// IsValidField reports whether field can be sorted on.
func (s *Sorter[T]) IsValidField(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// ValidFields returns the sortable fields in lexical order.
func (s *Sorter[T]) ValidFields() []string {
	fields := make([]string, 0, len(s.fields))
	for f := range s.fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Sort returns a stably sorted copy of items. An empty field returns items unchanged.
func (s *Sorter[T]) Sort(items []T, field, order string) ([]T, error) {
	if field == "" {
		return items, nil
	}
	cmp, ok := s.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(s.ValidFields(), ", "))
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		if order == SortOrderDesc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return sorted, nil
}
