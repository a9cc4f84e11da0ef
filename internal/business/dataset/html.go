package dataset

import (
	"html/template"
	"strconv"
	"strings"
)

// 与 pandas DataFrame.to_html 的默认输出保持同样的结构
var tableTmpl = template.Must(template.New("table").Parse(`<table border="1" class="dataframe">
  <thead>
    <tr style="text-align: right;">
      <th></th>
{{- range .Columns}}
      <th>{{.}}</th>
{{- end}}
    </tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>
      <th>{{.Index}}</th>
{{- range .Cells}}
      <td>{{.}}</td>
{{- end}}
    </tr>
{{- end}}
  </tbody>
</table>`))

type htmlRow struct {
	Index string
	Cells []string
}

// HTML 把表渲染为 HTML table，单元格内容会被转义
func (t *Table) HTML() (string, error) {
	rows := make([]htmlRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = htmlRow{Index: strconv.Itoa(i), Cells: r}
	}

	var sb strings.Builder
	err := tableTmpl.Execute(&sb, struct {
		Columns []string
		Rows    []htmlRow
	}{Columns: t.Columns, Rows: rows})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
