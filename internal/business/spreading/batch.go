package spreading

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"txcluster/internal/app/pkg/errorx"
)

// Range 半开区间 [Start, End)
type Range struct {
	Start int
	End   int
}

// Len 区间长度
func (r Range) Len() int {
	return r.End - r.Start
}

// Partition 把 [0, n) 切成连续的 size 大小的批次，最后一批可能不足 size；size <= 0 表示一整批
func Partition(n, size int) []Range {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size >= n {
		return []Range{{Start: 0, End: n}}
	}
	ranges := make([]Range, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// Ensemble 每个批次独立拟合一个成员，预测时累加各成员的类别分布
type Ensemble struct {
	Members []*Model `json:"members"`
	Classes []int    `json:"classes"`
	Skipped int      `json:"skipped"` // 没有标注样本而跳过的批次数
}

// BatchFunc 每个批次拟合完成后的回调
type BatchFunc func(index int, r Range, m *Model)

// FitBatches 按批拟合，ctx 取消时在批次之间停止
func FitBatches(ctx context.Context, x mat.Matrix, y []int, batchSize int, p Params, onBatch BatchFunc) (*Ensemble, error) {
	n, d := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%d rows but %d labels: %w", n, len(y), errorx.ErrDimensionsMismatch)
	}

	ens := &Ensemble{}
	for i, r := range Partition(n, batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch mat.Matrix = x
		if r.Len() != n {
			batch = sliceRows(x, r, d)
		}
		m, err := Fit(batch, y[r.Start:r.End], p)
		if errors.Is(err, ErrNoLabeledSamples) {
			ens.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fit batch %d [%d, %d) failed: %w", i, r.Start, r.End, err)
		}
		ens.Members = append(ens.Members, m)
		if onBatch != nil {
			onBatch(i, r, m)
		}
	}

	if len(ens.Members) == 0 {
		return nil, fmt.Errorf("no batch could be fitted: %w", errorx.ErrModelNotFitted)
	}
	ens.Classes = unionClasses(ens.Members)
	return ens, nil
}

func sliceRows(x mat.Matrix, r Range, cols int) mat.Matrix {
	if s, ok := x.(interface {
		Slice(i, k, j, l int) mat.Matrix
	}); ok {
		return s.Slice(r.Start, r.End, 0, cols)
	}
	out := mat.NewDense(r.Len(), cols, nil)
	for i := r.Start; i < r.End; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i-r.Start, j, x.At(i, j))
		}
	}
	return out
}

func unionClasses(members []*Model) []int {
	seen := make(map[int]struct{})
	for _, m := range members {
		for _, c := range m.Classes {
			seen[c] = struct{}{}
		}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// PredictProba 各成员的核加权得分按类别对齐后求和，再行归一化
func (e *Ensemble) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if e == nil || len(e.Members) == 0 {
		return nil, errorx.ErrModelNotFitted
	}
	r, _ := x.Dims()
	if r == 0 {
		return nil, errorx.ErrNoPredictions
	}

	col := make(map[int]int, len(e.Classes))
	for i, c := range e.Classes {
		col[c] = i
	}

	total := mat.NewDense(r, len(e.Classes), nil)
	for _, m := range e.Members {
		scores, err := m.scores(x)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			for j, c := range m.Classes {
				total.Set(i, col[c], total.At(i, col[c])+scores.At(i, j))
			}
		}
	}
	normalizeRows(total)
	return total, nil
}

// Predict 集成预测标签
func (e *Ensemble) Predict(x mat.Matrix) ([]int, error) {
	proba, err := e.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return argmax(proba, e.Classes), nil
}
