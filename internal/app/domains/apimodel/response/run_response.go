package response

import (
	"strconv"
	"time"

	"txcluster/internal/app/domains/entity/etrun"
)

// RunResponse 运行记录响应（DTO）
type RunResponse struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Result     *RunResult `json:"result,omitempty"`
	PlotURL    string     `json:"plot_url,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RunResult 运行结果（DTO）
type RunResult struct {
	Fingerprint        string         `json:"fingerprint"`
	ModelReused        bool           `json:"model_reused"`
	TrainRows          int            `json:"train_rows"`
	TestRows           int            `json:"test_rows"`
	MissingTestClients int            `json:"missing_test_clients"`
	LabelCounts        map[string]int `json:"label_counts"`
}

// FromRunEntity 领域对象转换为响应
func FromRunEntity(run *etrun.Run) *RunResponse {
	resp := &RunResponse{
		ID:         run.ID,
		Mode:       string(run.Mode),
		Status:     string(run.Status),
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		CreatedAt:  run.CreatedAt,
	}

	if r := run.Result; r != nil {
		counts := make(map[string]int, len(r.LabelCounts))
		for label, n := range r.LabelCounts {
			counts[strconv.Itoa(label)] = n
		}
		resp.Result = &RunResult{
			Fingerprint:        r.Fingerprint,
			ModelReused:        r.ModelReused,
			TrainRows:          r.TrainRows,
			TestRows:           r.TestRows,
			MissingTestClients: r.MissingTestClients,
			LabelCounts:        counts,
		}
		resp.PlotURL = PlotURL(run.ID)
	}
	return resp
}

// RunURL 运行记录的轮询地址
func RunURL(runID string) string {
	return "/api/v1/runs/" + runID
}

// PlotURL 运行图片地址
func PlotURL(runID string) string {
	return RunURL(runID) + "/plot"
}
