package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"txcluster/internal/app/pkg/errorx"
)

// File 数据集键名与固定文件名
type File struct {
	Key  string
	Name string
}

// 四个固定文件
var (
	TransactionsTrain = File{Key: "transactions_train", Name: "transactions_train.csv"}
	TrainTarget       = File{Key: "train_target", Name: "train_target.csv"}
	TransactionsTest  = File{Key: "transactions_test", Name: "transactions_test.csv"}
	TestIDs           = File{Key: "test_id", Name: "test.csv"}
)

// Files 按加载顺序排列
var Files = []File{TransactionsTrain, TrainTarget, TransactionsTest, TestIDs}

// Bundle 一次运行所需的四张表
type Bundle struct {
	TransactionsTrain *Table
	TrainTarget       *Table
	TransactionsTest  *Table
	TestIDs           *Table
}

// Each 按 Files 顺序遍历
func (b *Bundle) Each(fn func(f File, t *Table)) {
	fn(TransactionsTrain, b.TransactionsTrain)
	fn(TrainTarget, b.TrainTarget)
	fn(TransactionsTest, b.TransactionsTest)
	fn(TestIDs, b.TestIDs)
}

// Store 上传目录
type Store struct {
	dir string
}

// NewStore 创建上传目录（不存在时自动创建）
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir 上传目录路径
func (s *Store) Dir() string {
	return s.dir
}

// Save 原样写入上传文件，文件名只取 base name
func (s *Store) Save(name string, r io.Reader) error {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return fmt.Errorf("%q: %w", name, errorx.ErrInvalidUploadName)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s failed: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s failed: %w", base, err)
	}

	// rename 保证读取方不会看到写了一半的文件
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, base)); err != nil {
		return fmt.Errorf("rename %s failed: %w", base, err)
	}
	return nil
}

// LoadTable 读取单个数据集
func (s *Store) LoadTable(f File) (*Table, error) {
	file, err := os.Open(filepath.Join(s.dir, f.Name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", f.Name, errorx.ErrDatasetNotFound)
		}
		return nil, fmt.Errorf("open %s failed: %w", f.Name, err)
	}
	defer file.Close()

	return ReadTable(f.Name, file)
}

// Load 并发读取四个数据集，任一失败即返回
func (s *Store) Load(ctx context.Context) (*Bundle, error) {
	tables := make([]*Table, len(Files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range Files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := s.LoadTable(f)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Bundle{
		TransactionsTrain: tables[0],
		TrainTarget:       tables[1],
		TransactionsTest:  tables[2],
		TestIDs:           tables[3],
	}, nil
}
