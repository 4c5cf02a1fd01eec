package pagination

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		errMsg string
	}{
		{name: "zero value", params: Params{}},
		{name: "offset mode", params: Params{Limit: 10, Offset: 20}},
		{name: "page mode", params: Params{Page: 2, PageSize: 10}},
		{name: "negative limit", params: Params{Limit: -1}, errMsg: "limit cannot be negative"},
		{name: "negative offset", params: Params{Offset: -1}, errMsg: "offset cannot be negative"},
		{name: "negative page", params: Params{Page: -1}, errMsg: "page cannot be negative"},
		{name: "negative page-size", params: Params{PageSize: -1}, errMsg: "page-size cannot be negative"},
		{name: "mixed modes", params: Params{Page: 1, PageSize: 5, Offset: 10}, errMsg: "mutually exclusive"},
		{name: "page-size alone", params: Params{PageSize: 5}, errMsg: "page must be specified"},
		{name: "page alone", params: Params{Page: 2}, errMsg: "page-size must be specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{"no window", Params{}, items},
		{"limit", Params{Limit: 3}, []int{1, 2, 3}},
		{"offset", Params{Offset: 5}, []int{6, 7}},
		{"offset and limit", Params{Offset: 2, Limit: 2}, []int{3, 4}},
		{"offset past end", Params{Offset: 9}, []int{}},
		{"first page", Params{Page: 1, PageSize: 3}, []int{1, 2, 3}},
		{"last partial page", Params{Page: 3, PageSize: 3}, []int{7}},
		{"page past end clamps", Params{Page: 10, PageSize: 3}, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.params, items))
		})
	}

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Apply(Params{Limit: 3}, []string{}))
	})
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		expr      string
		wantField string
		wantOrder string
		wantErr   error
	}{
		{"", "", SortOrderDesc, nil},
		{"started", "started", SortOrderDesc, nil},
		{"kind:asc", "kind", SortOrderAsc, nil},
		{" failed : DESC ", "failed", SortOrderDesc, nil},
		{"a:b:c", "", "", ErrInvalidSortFormat},
		{":asc", "", "", ErrEmptySortField},
		{"kind:sideways", "", "", ErrInvalidSortOrder},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			field, order, err := ParseSort(tt.expr, SortOrderDesc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

type run struct {
	name   string
	failed int
}

func TestSorter(t *testing.T) {
	sorter := NewSorter(map[string]CompareFunc[run]{
		"name":   func(a, b run) int { return cmp.Compare(a.name, b.name) },
		"failed": func(a, b run) int { return cmp.Compare(a.failed, b.failed) },
	})
	runs := []run{{"b", 2}, {"a", 0}, {"c", 2}}

	t.Run("ascending", func(t *testing.T) {
		got, err := sorter.Sort(runs, "name", SortOrderAsc)
		require.NoError(t, err)
		assert.Equal(t, []run{{"a", 0}, {"b", 2}, {"c", 2}}, got)
		assert.Equal(t, "b", runs[0].name, "input is not modified")
	})

	t.Run("descending keeps ties stable", func(t *testing.T) {
		got, err := sorter.Sort(runs, "failed", SortOrderDesc)
		require.NoError(t, err)
		assert.Equal(t, []run{{"b", 2}, {"c", 2}, {"a", 0}}, got)
	})

	t.Run("no field", func(t *testing.T) {
		got, err := sorter.Sort(runs, "", SortOrderAsc)
		require.NoError(t, err)
		assert.Equal(t, runs, got)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := sorter.Sort(runs, "size", SortOrderAsc)
		require.ErrorIs(t, err, ErrInvalidSortField)
		assert.Contains(t, err.Error(), "failed, name")
	})
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   Meta
	}{
		{"single page", Params{}, 4, Meta{CurrentPage: 1, PageSize: 4, TotalPages: 1, TotalItems: 4}},
		{"middle page", Params{Page: 2, PageSize: 3}, 7,
			Meta{CurrentPage: 2, PageSize: 3, TotalPages: 3, TotalItems: 7, HasPrevious: true, HasNext: true}},
		{"page clamped", Params{Page: 9, PageSize: 3}, 7,
			Meta{CurrentPage: 3, PageSize: 3, TotalPages: 3, TotalItems: 7, HasPrevious: true}},
		{"offset mode", Params{Limit: 2, Offset: 4}, 5,
			Meta{CurrentPage: 3, PageSize: 2, TotalPages: 3, TotalItems: 5, HasPrevious: true}},
		{"empty", Params{}, 0, Meta{CurrentPage: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMeta(tt.params, tt.total))
		})
	}
}
