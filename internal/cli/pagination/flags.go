package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Sort orders.
const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Validation errors.
var (
	ErrMixedModes        = errors.New("page and offset parameters are mutually exclusive")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'started:desc')")
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// Params holds the list flags of a command.
type Params struct {
	// Limit caps the results in offset mode. Zero means no cap.
	Limit  int
	Offset int

	// Page is 1-based; zero means page mode is off.
	Page     int
	PageSize int

	// Sort is the raw "field[:order]" expression.
	Sort string
}

// Register binds the pagination flags of cmd to p.
func (p *Params) Register(cmd *cobra.Command, sortHelp string) {
	cmd.Flags().IntVarP(&p.Limit, "limit", "n", 0, "show at most this many entries")
	cmd.Flags().IntVar(&p.Offset, "offset", 0, "skip this many entries")
	cmd.Flags().IntVar(&p.Page, "page", 0, "1-based page to show (requires --page-size)")
	cmd.Flags().IntVar(&p.PageSize, "page-size", 0, "entries per page")
	cmd.Flags().StringVar(&p.Sort, "sort", "", sortHelp)
}

// Validate checks bounds and the pairing of page flags.
func (p Params) Validate() error {
	switch {
	case p.Limit < 0:
		return errors.New("limit cannot be negative")
	case p.Offset < 0:
		return errors.New("offset cannot be negative")
	case p.Page < 0:
		return errors.New("page cannot be negative")
	case p.PageSize < 0:
		return errors.New("page-size cannot be negative")
	case p.Page > 0 && p.Offset > 0:
		return ErrMixedModes
	case p.Page == 0 && p.PageSize > 0:
		return errors.New("page must be specified when using page-size")
	case p.PageSize == 0 && p.Page > 0:
		return errors.New("page-size must be specified when using page")
	}
	return nil
}

// IsPageBased reports whether page mode is active.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// OffsetLimit returns the window to apply. A zero limit means "to the end".
func (p Params) OffsetLimit() (int, int) {
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize, p.PageSize
	}
	return p.Offset, p.Limit
}

// Apply returns the window of items selected by p. In page mode a page past the end
// is clamped to the last page.
func Apply[T any](p Params, items []T) []T {
	if len(items) == 0 {
		return items
	}
	offset, limit := p.OffsetLimit()
	if p.IsPageBased() && offset >= len(items) {
		offset = ((len(items) - 1) / p.PageSize) * p.PageSize
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// ParseSort splits "field[:order]". An empty expression yields ("", defaultOrder).
func ParseSort(expr, defaultOrder string) (string, string, error) {
	if strings.TrimSpace(expr) == "" {
		return "", defaultOrder, nil
	}

	parts := strings.Split(expr, ":")
	if len(parts) > 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, expr)
	}
	field := strings.TrimSpace(parts[0])
	if field == "" {
		return "", "", ErrEmptySortField
	}
	order := defaultOrder
	if len(parts) == 2 {
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}
