package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"txcluster/internal/app/pkg/errorx"
)

// 列名
const (
	ColClientID   = "client_id"
	ColAmount     = "amount_rur"
	ColSmallGroup = "small_group"
	ColBins       = "bins"
)

// Transaction 一条交易记录（只保留建模需要的字段）
type Transaction struct {
	ClientID   int64
	Amount     float64
	SmallGroup string
}

// Transactions 从交易表提取 client_id / amount_rur / small_group
func Transactions(t *Table) ([]Transaction, error) {
	idIdx, err := t.ColumnIndex(ColClientID)
	if err != nil {
		return nil, err
	}
	amountIdx, err := t.ColumnIndex(ColAmount)
	if err != nil {
		return nil, err
	}
	groupIdx, err := t.ColumnIndex(ColSmallGroup)
	if err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		id, err := parseClientID(t.Name, i, row[idIdx])
		if err != nil {
			return nil, err
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[amountIdx]), 64)
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, fmt.Errorf("%s row %d: amount_rur %q: %w", t.Name, i+1, row[amountIdx], errorx.ErrMalformedValue)
		}
		group := strings.TrimSpace(row[groupIdx])
		if group == "" {
			return nil, fmt.Errorf("%s row %d: empty small_group: %w", t.Name, i+1, errorx.ErrMalformedValue)
		}
		txs = append(txs, Transaction{ClientID: id, Amount: amount, SmallGroup: group})
	}
	return txs, nil
}

// Labels 从 train_target 提取 client_id -> bins
func Labels(t *Table) (map[int64]int, error) {
	idIdx, err := t.ColumnIndex(ColClientID)
	if err != nil {
		return nil, err
	}
	binsIdx, err := t.ColumnIndex(ColBins)
	if err != nil {
		return nil, err
	}

	labels := make(map[int64]int, len(t.Rows))
	for i, row := range t.Rows {
		id, err := parseClientID(t.Name, i, row[idIdx])
		if err != nil {
			return nil, err
		}
		bin, err := parseLabel(row[binsIdx])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bins %q: %w", t.Name, i+1, row[binsIdx], errorx.ErrMalformedValue)
		}
		labels[id] = bin
	}
	return labels, nil
}

// ClientIDs 读取 test.csv 中的 client_id 列，保持原顺序
func ClientIDs(t *Table) ([]int64, error) {
	idIdx, err := t.ColumnIndex(ColClientID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(t.Rows))
	for i, row := range t.Rows {
		id, err := parseClientID(t.Name, i, row[idIdx])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseClientID(table string, row int, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s row %d: client_id %q: %w", table, row+1, raw, errorx.ErrMalformedValue)
	}
	return id, nil
}

// parseLabel 接受 "2" 和 "2.0" 两种写法
func parseLabel(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errorx.ErrMalformedValue
	}
	return int(f), nil
}
