package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"txcluster/internal/app/pkg/errorx"
)

// Table 内存中的 CSV 表：表头 + 原始字符串行
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Shape 行数、列数
func (t *Table) Shape() [2]int {
	return [2]int{len(t.Rows), len(t.Columns)}
}

// Head 返回前 n 行组成的新表
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return &Table{
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    t.Rows[:n],
	}
}

// ColumnIndex 查找列下标，不存在时返回 ErrColumnMissing
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, col := range t.Columns {
		if col == name {
			return i, nil
		}
	}
	return -1, errorx.Wrap(
		http.StatusUnprocessableEntity,
		fmt.Sprintf("%s: column %q", t.Name, name),
		errorx.ErrColumnMissing,
		errorx.ErrorDetail{Path: t.Name, Info: fmt.Sprintf("column %q is required", name)},
	)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable 解析 CSV，第一行为表头
func ReadTable(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file: %w", name, errorx.ErrMalformedValue)
		}
		return nil, fmt.Errorf("%s: read header: %v: %w", name, err, errorx.ErrMalformedValue)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, errorx.ErrMalformedValue)
	}

	return &Table{
		Name:    name,
		Columns: header,
		Rows:    rows,
	}, nil
}
