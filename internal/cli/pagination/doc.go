// Package pagination slices and sorts list output for the CLI.
//
// Two modes are supported and are mutually exclusive: offset-based (--limit and
// --offset) and page-based (--page and --page-size). Sorting uses "field" or
// "field:order" expressions validated against a per-list Sorter.
package pagination
