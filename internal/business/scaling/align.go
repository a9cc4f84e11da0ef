package scaling

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/business/features"
)

// Aligned 对齐后的训练 / 测试特征，列集合与顺序一致
type Aligned struct {
	Columns  []string
	TrainIDs []int64
	TestIDs  []int64
	Train    *mat.Dense
	Test     *mat.Dense
}

// Align 取两张表列名的交集，按训练表的列顺序（聚合列在前，类别列按自然序）
func Align(train, test *features.Table) (*Aligned, error) {
	inTest := make(map[string]struct{}, len(test.Columns))
	for _, c := range test.Columns {
		inTest[c] = struct{}{}
	}

	var columns []string
	for _, c := range train.Columns {
		if _, ok := inTest[c]; ok {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, errorx.ErrEmptyIntersection
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("train split has no clients: %w", errorx.ErrModelNotFitted)
	}
	if test.Len() == 0 {
		return nil, fmt.Errorf("test split has no clients: %w", errorx.ErrNoPredictions)
	}

	return &Aligned{
		Columns:  columns,
		TrainIDs: train.ClientIDs,
		TestIDs:  test.ClientIDs,
		Train:    Restrict(train, columns),
		Test:     Restrict(test, columns),
	}, nil
}

// Restrict 按给定列顺序取出矩阵；调用方保证 t 至少一行，缺失的列补 0
func Restrict(t *features.Table, columns []string) *mat.Dense {
	idx := make([]int, len(columns))
	for j, c := range columns {
		idx[j] = t.ColumnIndex(c)
	}

	m := mat.NewDense(t.Len(), len(columns), nil)
	for i, row := range t.Values {
		for j, src := range idx {
			if src >= 0 {
				m.Set(i, j, row[src])
			}
		}
	}
	return m
}
