package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"txcluster/internal/app/pkg/errorx"
)

const (
	filePrefix = "label_spreading_"
	fileSuffix = ".json"
)

// FileRegistry 每个指纹一个 JSON 文件
type FileRegistry struct {
	dir string
}

// NewFileRegistry 创建模型目录
func NewFileRegistry(dir string) (*FileRegistry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir failed: %w", err)
	}
	return &FileRegistry{dir: dir}, nil
}

func (r *FileRegistry) path(fingerprint string) string {
	return filepath.Join(r.dir, filePrefix+fingerprint+fileSuffix)
}

// Get 读取模型文件
func (r *FileRegistry) Get(_ context.Context, fingerprint string) (*Artifact, error) {
	if !ValidFingerprint(fingerprint) {
		return nil, errorx.ErrArtifactNotFound
	}
	raw, err := os.ReadFile(r.path(fingerprint))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errorx.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact failed: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s failed: %w", fingerprint, err)
	}
	return &a, nil
}

// Put 先写临时文件再 rename
func (r *FileRegistry) Put(_ context.Context, a *Artifact) error {
	if !ValidFingerprint(a.Fingerprint) {
		return fmt.Errorf("invalid fingerprint %q", a.Fingerprint)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact failed: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(a.Fingerprint)); err != nil {
		return fmt.Errorf("rename artifact failed: %w", err)
	}
	return nil
}

// artifactHeader 只解码摘要需要的字段，成员矩阵保持原始 JSON
type artifactHeader struct {
	Fingerprint string    `json:"fingerprint"`
	Columns     []string  `json:"columns"`
	TrainRows   int       `json:"train_rows"`
	CreatedAt   time.Time `json:"created_at"`
	Ensemble    struct {
		Members []json.RawMessage `json:"members"`
	} `json:"ensemble"`
}

func (h *artifactHeader) summary() Summary {
	return Summary{
		Fingerprint: h.Fingerprint,
		Features:    len(h.Columns),
		TrainRows:   h.TrainRows,
		Members:     len(h.Ensemble.Members),
		CreatedAt:   h.CreatedAt,
	}
}

// List 扫描模型目录
func (r *FileRegistry) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read model dir failed: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s failed: %w", name, err)
		}
		var hdr artifactHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, fmt.Errorf("decode %s failed: %w", name, err)
		}
		summaries = append(summaries, hdr.summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Delete 删除模型文件
func (r *FileRegistry) Delete(_ context.Context, fingerprint string) error {
	if !ValidFingerprint(fingerprint) {
		return errorx.ErrArtifactNotFound
	}
	if err := os.Remove(r.path(fingerprint)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errorx.ErrArtifactNotFound
		}
		return fmt.Errorf("delete artifact failed: %w", err)
	}
	return nil
}
