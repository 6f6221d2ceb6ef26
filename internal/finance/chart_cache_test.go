package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newImageCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	c.put("a", []byte{1})
	img, ok := c.get("a")
	require.True(t, ok)
	img[0] = 9
	again, _ := c.get("a")
	assert.Equal(t, []byte{1}, again, "callers get copies")

	now = now.Add(10 * time.Second)
	c.put("b", []byte{2})
	c.put("c", []byte{3})
	_, ok = c.get("a")
	assert.False(t, ok, "full cache drops the entry closest to expiry")
	_, ok = c.get("c")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.get("c")
	assert.False(t, ok)
}

func TestRenderPortfolioChart(t *testing.T) {
	table, err := NewAggregator(abStore()).Allocate([]string{"A", "B"}, []float64{0.5, 0.5})
	require.NoError(t, err)
	img, err := RenderPortfolioChart(table)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), img[:4])

	_, err = RenderPortfolioChart(&PortfolioTable{})
	assert.Error(t, err)
}
