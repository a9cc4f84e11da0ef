package spreading

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"txcluster/internal/app/pkg/errorx"
)

// Unlabeled 未标注样本的标签
const Unlabeled = -1

// ErrNoLabeledSamples 样本中没有任何已标注行
var ErrNoLabeledSamples = errors.New("no labeled samples")

// Params Label Spreading 超参数
type Params struct {
	Gamma   float64 `json:"gamma"`
	Alpha   float64 `json:"alpha"`
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`
}

// DefaultParams RBF gamma=0.25, alpha=0.2, max_iter=30, tol=1e-3
func DefaultParams() Params {
	return Params{Gamma: 0.25, Alpha: 0.2, MaxIter: 30, Tol: 1e-3}
}

// Model 一个已拟合的 Label Spreading 模型
type Model struct {
	Params        Params
	Classes       []int
	X             *mat.Dense // 训练样本
	Distributions *mat.Dense // 行：样本，列：Classes
	NIter         int
}

// Fit 在 x 上拟合，y 与 x 行对齐，未标注为 Unlabeled
func Fit(x mat.Matrix, y []int, p Params) (*Model, error) {
	n, _ := x.Dims()
	if n == 0 {
		return nil, errorx.ErrModelNotFitted
	}
	if len(y) != n {
		return nil, fmt.Errorf("%d rows but %d labels: %w", n, len(y), errorx.ErrDimensionsMismatch)
	}

	classes := uniqueClasses(y)
	if len(classes) == 0 {
		return nil, ErrNoLabeledSamples
	}
	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	train := mat.DenseCopyOf(x)
	graph := normalizedGraph(rbf(train, train, p.Gamma))

	k := len(classes)
	yStatic := mat.NewDense(n, k, nil)
	for i, label := range y {
		if label == Unlabeled {
			continue
		}
		yStatic.Set(i, classIdx[label], 1)
	}

	dist := mat.DenseCopyOf(yStatic)
	yStatic.Scale(1-p.Alpha, yStatic)

	prev := mat.NewDense(n, k, nil)
	next := mat.NewDense(n, k, nil)
	iter := 0
	for iter < p.MaxIter {
		if l1Diff(dist, prev) < p.Tol {
			break
		}
		prev.Copy(dist)

		// F = alpha * S * F + (1 - alpha) * Y
		next.Mul(graph, dist)
		next.Scale(p.Alpha, next)
		next.Add(next, yStatic)
		dist, next = next, dist
		iter++
	}
	normalizeRows(dist)

	return &Model{
		Params:        p,
		Classes:       classes,
		X:             train,
		Distributions: dist,
		NIter:         iter,
	}, nil
}

// PredictProba 测试样本在各类别上的归一化分布
func (m *Model) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	proba, err := m.scores(x)
	if err != nil {
		return nil, err
	}
	normalizeRows(proba)
	return proba, nil
}

// scores 未归一化的 rbf(x, X) * F
func (m *Model) scores(x mat.Matrix) (*mat.Dense, error) {
	if m == nil || m.X == nil {
		return nil, errorx.ErrModelNotFitted
	}
	_, d := m.X.Dims()
	r, c := x.Dims()
	if c != d {
		return nil, fmt.Errorf("model fitted on %d features, got %d: %w", d, c, errorx.ErrDimensionsMismatch)
	}
	if r == 0 {
		return nil, errorx.ErrNoPredictions
	}

	weights := rbf(x, m.X, m.Params.Gamma)
	var out mat.Dense
	out.Mul(weights, m.Distributions)
	return &out, nil
}

// Predict 测试样本的预测标签
func (m *Model) Predict(x mat.Matrix) ([]int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return argmax(proba, m.Classes), nil
}

func uniqueClasses(y []int) []int {
	seen := make(map[int]struct{})
	for _, label := range y {
		if label != Unlabeled {
			seen[label] = struct{}{}
		}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// rbf 计算 exp(-gamma * ||a_i - b_j||^2)
func rbf(a, b mat.Matrix, gamma float64) *mat.Dense {
	ra, _ := a.Dims()
	rb, _ := b.Dims()

	sqA := rowSquaredNorms(a)
	sqB := rowSquaredNorms(b)

	k := mat.NewDense(ra, rb, nil)
	k.Mul(a, b.T())
	k.Apply(func(i, j int, v float64) float64 {
		d := sqA[i] + sqB[j] - 2*v
		if d < 0 {
			d = 0
		}
		return math.Exp(-gamma * d)
	}, k)
	return k
}

func rowSquaredNorms(a mat.Matrix) []float64 {
	r, c := a.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		var s float64
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			s += v * v
		}
		out[i] = s
	}
	return out
}

// normalizedGraph 计算 D^-1/2 W D^-1/2，度数不含自环，对角线置 0
func normalizedGraph(w *mat.Dense) *mat.Dense {
	n, _ := w.Dims()
	for i := 0; i < n; i++ {
		w.Set(i, i, 0)
	}

	sqrtDeg := make([]float64, n)
	for i := 0; i < n; i++ {
		var deg float64
		for j := 0; j < n; j++ {
			deg += w.At(i, j)
		}
		sqrtDeg[i] = math.Sqrt(deg)
		if sqrtDeg[i] == 0 {
			sqrtDeg[i] = 1
		}
	}

	w.Apply(func(i, j int, v float64) float64 {
		return v / (sqrtDeg[i] * sqrtDeg[j])
	}, w)
	return w
}

func l1Diff(a, b *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(a, b)
	var s float64
	r, c := diff.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s += math.Abs(diff.At(i, j))
		}
	}
	return s
}

// normalizeRows 行归一化，全 0 行保持不变
func normalizeRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		var s float64
		for _, v := range row {
			s += v
		}
		if s == 0 {
			continue
		}
		for j := range row {
			row[j] /= s
		}
	}
}

func argmax(m *mat.Dense, classes []int) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = classes[best]
	}
	return out
}
