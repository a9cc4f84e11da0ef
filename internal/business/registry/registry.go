package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"txcluster/internal/business/scaling"
	"txcluster/internal/business/spreading"
)

// Artifact 已训练的模型及其训练时的特征空间
type Artifact struct {
	Fingerprint string                  `json:"fingerprint"`
	Columns     []string                `json:"columns"`
	Params      spreading.Params        `json:"params"`
	BatchSize   int                     `json:"batch_size"`
	TrainRows   int                     `json:"train_rows"`
	Scaler      *scaling.StandardScaler `json:"scaler"`
	Ensemble    *spreading.Ensemble     `json:"ensemble"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Summary 列表展示用的模型摘要
type Summary struct {
	Fingerprint string    `json:"fingerprint"`
	Features    int       `json:"features"`
	TrainRows   int       `json:"train_rows"`
	Members     int       `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summarize 生成摘要
func (a *Artifact) Summarize() Summary {
	members := 0
	if a.Ensemble != nil {
		members = len(a.Ensemble.Members)
	}
	return Summary{
		Fingerprint: a.Fingerprint,
		Features:    len(a.Columns),
		TrainRows:   a.TrainRows,
		Members:     members,
		CreatedAt:   a.CreatedAt,
	}
}

// Registry 模型仓库，按指纹存取
type Registry interface {
	// Get 不存在时返回 errorx.ErrArtifactNotFound
	Get(ctx context.Context, fingerprint string) (*Artifact, error)

	// Put 同一指纹覆盖写入
	Put(ctx context.Context, a *Artifact) error

	// List 按创建时间倒序
	List(ctx context.Context) ([]Summary, error)

	// Delete 不存在时返回 errorx.ErrArtifactNotFound
	Delete(ctx context.Context, fingerprint string) error
}

type fingerprintInput struct {
	Columns   []string `json:"columns"`
	Gamma     float64  `json:"gamma"`
	Alpha     float64  `json:"alpha"`
	MaxIter   int      `json:"max_iter"`
	Tol       float64  `json:"tol"`
	BatchSize int      `json:"batch_size"`
}

// Fingerprint 有序特征名 + 超参数的 sha256，特征集合或参数变化都会得到新的指纹
func Fingerprint(columns []string, p spreading.Params, batchSize int) string {
	// 结构体字段顺序固定，json 编码结果稳定
	raw, _ := json.Marshal(fingerprintInput{
		Columns:   columns,
		Gamma:     p.Gamma,
		Alpha:     p.Alpha,
		MaxIter:   p.MaxIter,
		Tol:       p.Tol,
		BatchSize: batchSize,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ValidFingerprint 64 位小写十六进制
func ValidFingerprint(fp string) bool {
	if len(fp) != sha256.Size*2 {
		return false
	}
	for _, c := range fp {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
