package plot

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"txcluster/internal/app/pkg/errorx"
)

// 直方图参数
const (
	DefaultBins = 20
	Title       = "Cluster Distribution"
)

// Histogram 等宽分箱，len(Edges) == len(Counts)+1
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// NewHistogram 在 [min, max] 上等宽分 bins 箱，最大值落在最后一箱；min == max 时范围取 [v-0.5, v+0.5]
func NewHistogram(labels []int, bins int) (*Histogram, error) {
	if len(labels) == 0 {
		return nil, errorx.ErrNoPredictions
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	x := make([]float64, len(labels))
	for i, l := range labels {
		x[i] = float64(l)
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram 的区间右开，把最后一个边界推到 hi 之后
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	return &Histogram{Edges: edges, Counts: counts}, nil
}

// Render 用柱状图渲染为 PNG
func Render(w io.Writer, h *Histogram, title string) error {
	bars := make([]chart.Value, len(h.Counts))
	for i, c := range h.Counts {
		bars[i] = chart.Value{
			Value: c,
			Label: fmt.Sprintf("%.2g", h.Edges[i]),
		}
	}

	top := floats.Max(h.Counts)
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      1024,
		Height:     512,
		BarWidth:   36,
		BarSpacing: 8,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render histogram failed: %w", err)
	}
	return nil
}

// RenderLabels 预测标签 -> PNG 字节
func RenderLabels(labels []int) ([]byte, error) {
	h, err := NewHistogram(labels, DefaultBins)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Render(&buf, h, Title); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
