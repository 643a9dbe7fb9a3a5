package backend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("l%d", i+1)
	}
	return lines
}

func TestAlignPairsReplacedLines(t *testing.T) {
	a := numbered(8)
	b := numbered(8)
	b[4] = "L5"

	rows := align(a, b)
	require.Len(t, rows, 8)
	for i, row := range rows {
		require.NotNil(t, row.Left)
		require.NotNil(t, row.Right)
		assert.Equal(t, i == 4, row.Changed, "row %d", i)
		assert.Equal(t, i+1, row.Left.Num)
		assert.Equal(t, i+1, row.Right.Num)
	}
}

func TestGroupContext(t *testing.T) {
	a := numbered(8)
	b := numbered(8)
	b[4] = "L5"

	hunks := group(align(a, b), 1, false)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -4,3 +4,3 @@", hunks[0].Header())
	assert.Len(t, hunks[0].Rows, 3)
}

func TestGroupMergesAndSplits(t *testing.T) {
	tests := []struct {
		name    string
		changed []int
		want    int
	}{
		{name: "touching windows merge", changed: []int{1, 4}, want: 1},
		{name: "far apart", changed: []int{0, 6}, want: 2},
		{name: "nothing changed", changed: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := numbered(10)
			b := numbered(10)
			for _, i := range tt.changed {
				b[i] = "changed"
			}
			assert.Len(t, group(align(a, b), 1, false), tt.want)
		})
	}
}

func TestGroupAllKeepsEveryRow(t *testing.T) {
	a := numbered(5)
	hunks := group(align(a, a), 3, true)
	require.Len(t, hunks, 1)
	assert.Len(t, hunks[0].Rows, 5)
	assert.Equal(t, "@@ -1,5 +1,5 @@", hunks[0].Header())
}

func TestHunkHeaderForPureInsert(t *testing.T) {
	hunks := group(align(nil, []string{"x"}), 3, false)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -0,0 +1,1 @@", hunks[0].Header())
}
