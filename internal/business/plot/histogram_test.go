package plot

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"txcluster/internal/app/pkg/errorx"
)

func TestNewHistogram(t *testing.T) {
	h, err := NewHistogram([]int{0, 0, 1, 3, 3, 3}, DefaultBins)
	require.NoError(t, err)

	require.Len(t, h.Edges, 21)
	require.Len(t, h.Counts, 20)
	assert.Equal(t, 0.0, h.Edges[0])
	assert.Equal(t, 3.0, h.Edges[20])
	assert.Equal(t, 6.0, floats.Sum(h.Counts))

	assert.Equal(t, 2.0, h.Counts[0])
	assert.Equal(t, 3.0, h.Counts[19])
	// 1 落在 [0.9, 1.05) 这一箱
	assert.Equal(t, 1.0, h.Counts[6])
}

func TestNewHistogramSingleValue(t *testing.T) {
	h, err := NewHistogram([]int{2, 2, 2}, 20)
	require.NoError(t, err)

	assert.Equal(t, 1.5, h.Edges[0])
	assert.Equal(t, 2.5, h.Edges[20])
	assert.Equal(t, 3.0, floats.Sum(h.Counts))
	// 2 落在中间的箱（边界浮点误差可能落到左侧一箱）
	assert.Contains(t, []float64{h.Counts[9], h.Counts[10]}, 3.0)
}

func TestNewHistogramEmpty(t *testing.T) {
	_, err := NewHistogram(nil, 20)
	assert.ErrorIs(t, err, errorx.ErrNoPredictions)
}

func TestRenderLabels(t *testing.T) {
	raw, err := RenderLabels([]int{0, 1, 1, 2, 3, 3, 3})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}
