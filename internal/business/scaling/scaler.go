package scaling

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"txcluster/internal/app/pkg/errorx"
)

// StandardScaler 按列标准化：(x - mean) / scale，scale 为总体标准差
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler 只用训练矩阵拟合
func FitStandardScaler(x mat.Matrix) *StandardScaler {
	r, c := x.Dims()
	s := &StandardScaler{
		Mean:  make([]float64, c),
		Scale: make([]float64, c),
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		// 方差为 0 的列不缩放
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Transform 返回新矩阵，不修改输入
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != len(s.Mean) {
		return nil, fmt.Errorf("scaler fitted on %d columns, got %d: %w", len(s.Mean), c, errorx.ErrDimensionsMismatch)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out, nil
}
