package scaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/business/features"
)

func TestAlignIntersectsColumns(t *testing.T) {
	train := &features.Table{
		ClientIDs: []int64{1, 2},
		Columns:   []string{"sum", "mean", "small_group_1", "small_group_5"},
		Values:    [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}},
	}
	test := &features.Table{
		ClientIDs: []int64{9},
		Columns:   []string{"sum", "small_group_5", "mean", "small_group_9"},
		Values:    [][]float64{{10, 40, 20, 99}},
	}

	aligned, err := Align(train, test)
	require.NoError(t, err)

	assert.Equal(t, []string{"sum", "mean", "small_group_5"}, aligned.Columns)
	_, trainCols := aligned.Train.Dims()
	_, testCols := aligned.Test.Dims()
	assert.Equal(t, trainCols, testCols)
	assert.Equal(t, []float64{5, 6, 8}, mat.Row(nil, 1, aligned.Train))
	assert.Equal(t, []float64{10, 20, 40}, mat.Row(nil, 0, aligned.Test))
	assert.Equal(t, []int64{9}, aligned.TestIDs)
}

func TestAlignErrors(t *testing.T) {
	a := &features.Table{ClientIDs: []int64{1}, Columns: []string{"small_group_1"}, Values: [][]float64{{1}}}
	b := &features.Table{ClientIDs: []int64{1}, Columns: []string{"small_group_2"}, Values: [][]float64{{1}}}
	_, err := Align(a, b)
	assert.ErrorIs(t, err, errorx.ErrEmptyIntersection)

	empty := &features.Table{Columns: []string{"small_group_1"}}
	_, err = Align(empty, a)
	assert.ErrorIs(t, err, errorx.ErrModelNotFitted)

	_, err = Align(a, empty)
	assert.ErrorIs(t, err, errorx.ErrNoPredictions)
}

func TestStandardScaler(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})
	s := FitStandardScaler(x)

	assert.Equal(t, []float64{2.5, 7}, s.Mean)
	assert.InDelta(t, 1.118034, s.Scale[0], 1e-6)
	assert.Equal(t, 1.0, s.Scale[1])

	out, err := s.Transform(x)
	require.NoError(t, err)
	col := mat.Col(nil, 0, out)
	var sum, sq float64
	for _, v := range col {
		sum += v
		sq += v * v
	}
	assert.InDelta(t, 0, sum, 1e-9)
	assert.InDelta(t, 4, sq, 1e-9)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, out))

	// 输入不被修改
	assert.Equal(t, 1.0, x.At(0, 0))
}

func TestScalerIgnoresTestData(t *testing.T) {
	train := mat.NewDense(3, 1, []float64{1, 2, 3})
	s := FitStandardScaler(train)
	before := append([]float64(nil), s.Mean...)

	_, err := s.Transform(mat.NewDense(2, 1, []float64{1000, -1000}))
	require.NoError(t, err)
	assert.Equal(t, before, s.Mean)

	_, err = s.Transform(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, errorx.ErrDimensionsMismatch)
}
