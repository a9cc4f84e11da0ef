package features

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"txcluster/internal/business/dataset"
)

// 聚合特征列名
const (
	ColSum         = "sum"
	ColMean        = "mean"
	ColStd         = "std"
	ColMin         = "min"
	ColMax         = "max"
	CategoryPrefix = "small_group_"
)

// AggregateColumns 聚合列，固定顺序
var AggregateColumns = []string{ColSum, ColMean, ColStd, ColMin, ColMax}

// Table 每个客户一行的特征表，行按 client_id 升序
type Table struct {
	ClientIDs []int64
	Columns   []string
	Values    [][]float64
}

// Len 行数
func (t *Table) Len() int {
	return len(t.ClientIDs)
}

// ColumnIndex 列下标，不存在返回 -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column 取出一列
func (t *Table) Column(name string) ([]float64, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	col := make([]float64, len(t.Values))
	for i, row := range t.Values {
		col[i] = row[idx]
	}
	return col, true
}

type clientAgg struct {
	amounts []float64
	groups  map[string]int
}

// Build 按 client_id 聚合交易金额，并把 small_group 计数展开成列
func Build(txs []dataset.Transaction) *Table {
	byClient := make(map[int64]*clientAgg)
	categories := make(map[string]struct{})
	for _, tx := range txs {
		agg, ok := byClient[tx.ClientID]
		if !ok {
			agg = &clientAgg{groups: make(map[string]int)}
			byClient[tx.ClientID] = agg
		}
		agg.amounts = append(agg.amounts, tx.Amount)
		agg.groups[tx.SmallGroup]++
		categories[tx.SmallGroup] = struct{}{}
	}

	ids := make([]int64, 0, len(byClient))
	for id := range byClient {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cats := SortCategories(keys(categories))
	columns := make([]string, 0, len(AggregateColumns)+len(cats))
	columns = append(columns, AggregateColumns...)
	for _, c := range cats {
		columns = append(columns, CategoryPrefix+c)
	}

	values := make([][]float64, len(ids))
	for i, id := range ids {
		agg := byClient[id]
		row := make([]float64, len(columns))
		row[0] = floats.Sum(agg.amounts)
		row[1] = stat.Mean(agg.amounts, nil)
		row[2] = sampleStd(agg.amounts)
		row[3] = floats.Min(agg.amounts)
		row[4] = floats.Max(agg.amounts)
		for j, c := range cats {
			row[len(AggregateColumns)+j] = float64(agg.groups[c])
		}
		values[i] = row
	}

	return &Table{
		ClientIDs: ids,
		Columns:   columns,
		Values:    values,
	}
}

// sampleStd 样本标准差（n-1），单条交易时为 0
func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// SortCategories 数字类别按数值排序，其余按字典序，数字排在前面
func SortCategories(cats []string) []string {
	sort.Slice(cats, func(i, j int) bool {
		a, errA := strconv.ParseInt(cats[i], 10, 64)
		b, errB := strconv.ParseInt(cats[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return cats[i] < cats[j]
		}
	})
	return cats
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
