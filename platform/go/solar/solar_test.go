package solar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowLatestBefore(t *testing.T) {
	t.Parallel()

	w := Window{Days: []Day{{Date: "2026-03-04"}, {Date: "2026-03-02"}, {Date: "2026-03-03"}}}

	d, ok := w.LatestBefore("2026-03-10")
	require.True(t, ok)
	require.Equal(t, "2026-03-04", d.Date)

	d, ok = w.LatestBefore("2026-03-03")
	require.True(t, ok)
	require.Equal(t, "2026-03-02", d.Date)

	_, ok = w.LatestBefore("2026-03-02")
	require.False(t, ok)

	_, ok = Window{}.LatestBefore("2026-03-02")
	require.False(t, ok)
}
