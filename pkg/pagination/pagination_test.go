package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, Params{Page: 1, PageSize: 10}, Params{}.Normalize())
	require.Equal(t, Params{Page: 3, PageSize: 100}, Params{Page: 3, PageSize: 500}.Normalize())
	require.Equal(t, Params{Page: 1, PageSize: 5}, Params{Page: -2, PageSize: 5}.Normalize())
}

func TestOffset(t *testing.T) {
	require.Equal(t, 0, Params{}.Offset())
	require.Equal(t, 20, Params{Page: 3, PageSize: 10}.Offset())
}

func TestNewPage(t *testing.T) {
	page := NewPage([]int{1, 2, 3}, Params{Page: 2, PageSize: 3}, 7)
	require.Equal(t, 3, page.TotalPages)
	require.True(t, page.HasPrevious)
	require.True(t, page.HasNext)

	last := NewPage([]int{7}, Params{Page: 3, PageSize: 3}, 7)
	require.False(t, last.HasNext)

	empty := NewPage[int](nil, Params{}, 0)
	require.NotNil(t, empty.Items)
	require.Equal(t, 0, empty.TotalPages)
	require.False(t, empty.HasNext)
	require.False(t, empty.HasPrevious)
}
