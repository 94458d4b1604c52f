package slotpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type body struct{ x float64 }
type node struct{ x float64 }

func TestZipLockstep(t *testing.T) {
	bodies, err := New[body](8)
	require.NoError(t, err)
	nodes, err := New[node](4) // different capacity on purpose
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := bodies.Create(body{x: float64(i)})
		require.NoError(t, err)
		_, err = nodes.Create(node{})
		require.NoError(t, err)
	}

	var pairs []float64
	err = Zip(bodies, nodes, func(b *body, n *node) {
		n.x = b.x
		pairs = append(pairs, b.x)
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, pairs)

	var got []float64
	nodes.ForEachConst(func(_ Handle, n node) { got = append(got, n.x) })
	assert.Equal(t, []float64{0, 1, 2, 3}, got)
}

func TestZipAfterMatchedChurn(t *testing.T) {
	a, _ := New[int](4)
	b, _ := New[string](4)
	var ha, hb []Handle
	for i, s := range []string{"a", "b", "c"} {
		x, err := a.Create(i)
		require.NoError(t, err)
		y, err := b.Create(s)
		require.NoError(t, err)
		ha, hb = append(ha, x), append(hb, y)
	}
	require.NoError(t, a.Destroy(ha[0]))
	require.NoError(t, b.Destroy(hb[0]))
	_, err := a.Create(9)
	require.NoError(t, err)
	_, err = b.Create("z")
	require.NoError(t, err)

	got := map[int]string{}
	require.NoError(t, ZipConst(a, b, func(x int, y string) { got[x] = y }))
	assert.Equal(t, map[int]string{9: "z", 1: "b", 2: "c"}, got)
}

func TestZipReportsDesync(t *testing.T) {
	a, _ := New[int](4)
	b, _ := New[int](4)

	for i := 0; i < 3; i++ {
		_, err := a.Create(i)
		require.NoError(t, err)
		_, err = b.Create(i * 10)
		require.NoError(t, err)
	}
	// Destroy index 1 in b only.
	hb, err := b.HandleAt(1)
	require.NoError(t, err)
	require.NoError(t, b.Destroy(hb))

	visited := 0
	err = Zip(a, b, func(x, y *int) {
		visited++
		assert.Equal(t, *x*10, *y)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolDesync)
	assert.Equal(t, 2, visited, "aligned pairs are still visited")

	var de *DesyncError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Index)
	assert.True(t, de.ActiveInA)
	assert.False(t, de.ActiveInB)
}

func TestZipReportsUnpairedTail(t *testing.T) {
	a, _ := New[int](4)
	b, _ := New[int](4)
	for i := 0; i < 3; i++ {
		_, err := a.Create(i)
		require.NoError(t, err)
	}
	_, err := b.Create(0)
	require.NoError(t, err)

	visited := 0
	err = Zip(a, b, func(*int, *int) { visited++ })
	assert.Equal(t, 1, visited)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.ErrorIs(t, e, ErrPoolDesync)
	}
}

func TestZipEmpty(t *testing.T) {
	a, _ := New[int](1)
	b, _ := New[int](1)
	assert.NoError(t, Zip(a, b, func(*int, *int) { t.Fatal("no pairs expected") }))
}
