package spreading

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// modelJSON 矩阵按行展开存储
type modelJSON struct {
	Params        Params    `json:"params"`
	Classes       []int     `json:"classes"`
	Rows          int       `json:"rows"`
	Features      int       `json:"features"`
	X             []float64 `json:"x"`
	Distributions []float64 `json:"distributions"`
	NIter         int       `json:"n_iter"`
}

// MarshalJSON 实现 json.Marshaler
func (m *Model) MarshalJSON() ([]byte, error) {
	rows, features := m.X.Dims()
	return json.Marshal(modelJSON{
		Params:        m.Params,
		Classes:       m.Classes,
		Rows:          rows,
		Features:      features,
		X:             flatten(m.X),
		Distributions: flatten(m.Distributions),
		NIter:         m.NIter,
	})
}

// UnmarshalJSON 实现 json.Unmarshaler
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Rows <= 0 || raw.Features <= 0 || len(raw.Classes) == 0 {
		return fmt.Errorf("invalid model shape %dx%d with %d classes", raw.Rows, raw.Features, len(raw.Classes))
	}
	if len(raw.X) != raw.Rows*raw.Features || len(raw.Distributions) != raw.Rows*len(raw.Classes) {
		return fmt.Errorf("model payload does not match shape %dx%d", raw.Rows, raw.Features)
	}

	*m = Model{
		Params:        raw.Params,
		Classes:       raw.Classes,
		X:             mat.NewDense(raw.Rows, raw.Features, raw.X),
		Distributions: mat.NewDense(raw.Rows, len(raw.Classes), raw.Distributions),
		NIter:         raw.NIter,
	}
	return nil
}

func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
