package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/dataset"
	"txcluster/internal/business/registry"
	"txcluster/internal/business/spreading"
)

const (
	trainTx = "client_id,trans_date,small_group,amount_rur\n" +
		"1,0,1,1\n1,1,1,2\n" +
		"2,0,1,2\n2,1,1,3\n" +
		"3,0,1,1\n3,1,1,3\n" +
		"4,0,2,100\n4,1,2,110\n" +
		"5,0,2,105\n5,1,2,100\n" +
		"6,0,2,110\n6,1,2,105\n"
	trainTarget = "client_id,bins\n1,0\n4,1\n"
	testTx      = "client_id,trans_date,small_group,amount_rur\n" +
		"10,0,1,2\n10,1,1,2\n" +
		"11,0,2,100\n11,1,2,110\n"
	testIDs = "client_id\n10\n11\n12\n"
)

type fixture struct {
	store    *dataset.Store
	registry *registry.FileRegistry
	static   string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()

	store, err := dataset.NewStore(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	for name, body := range files {
		require.NoError(t, store.Save(name, strings.NewReader(body)))
	}
	reg, err := registry.NewFileRegistry(filepath.Join(root, "model"))
	require.NoError(t, err)

	return &fixture{store: store, registry: reg, static: filepath.Join(root, "static")}
}

func defaultFiles() map[string]string {
	return map[string]string{
		dataset.TransactionsTrain.Name: trainTx,
		dataset.TrainTarget.Name:       trainTarget,
		dataset.TransactionsTest.Name:  testTx,
		dataset.TestIDs.Name:           testIDs,
	}
}

func (f *fixture) pipeline(t *testing.T, batchSize int, params spreading.Params) *Pipeline {
	t.Helper()
	log := logger.NewNop()
	p, err := New(f.store, registry.NewTrainer(f.registry, nil, log), Options{
		Params:    params,
		BatchSize: batchSize,
		StaticDir: f.static,
	}, log)
	require.NoError(t, err)
	return p
}

func TestRun(t *testing.T) {
	f := newFixture(t, defaultFiles())
	p := f.pipeline(t, 0, spreading.DefaultParams())

	res, err := p.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.False(t, res.ModelReused)
	assert.Equal(t, []string{"sum", "mean", "std", "min", "max", "small_group_1", "small_group_2"}, res.Columns)
	assert.Equal(t, 6, res.TrainRows)
	assert.Equal(t, 2, res.TestRows)
	assert.Equal(t, 1, res.MissingTestClients)
	assert.Equal(t, []int64{10, 11}, res.ClientIDs)
	assert.Equal(t, []int{0, 1}, res.Predictions)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, res.LabelCounts)
	assert.NotEmpty(t, res.PNG)

	raw, err := os.ReadFile(res.PlotPath)
	require.NoError(t, err)
	assert.Equal(t, res.PNG, raw)
	assert.Equal(t, filepath.Join(f.static, "plot_run-1.png"), res.PlotPath)

	sub, err := os.ReadFile(res.SubmissionPath)
	require.NoError(t, err)
	assert.Equal(t, "client_id,cluster\n10,0\n11,1\n", string(sub))
}

func TestRunReusesModel(t *testing.T) {
	f := newFixture(t, defaultFiles())
	p := f.pipeline(t, 0, spreading.DefaultParams())

	first, err := p.Run(context.Background(), "a")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "b")
	require.NoError(t, err)

	assert.False(t, first.ModelReused)
	assert.True(t, second.ModelReused)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Predictions, second.Predictions)
	assert.NotEqual(t, first.PlotPath, second.PlotPath)

	// 参数变化得到新指纹，重新训练
	params := spreading.DefaultParams()
	params.Gamma = 0.5
	third, err := f.pipeline(t, 0, params).Run(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, third.ModelReused)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)

	list, err := f.registry.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRunBatched(t *testing.T) {
	f := newFixture(t, defaultFiles())
	p := f.pipeline(t, 3, spreading.DefaultParams())

	res, err := p.Run(context.Background(), "batched")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Predictions)

	a, err := f.registry.Get(context.Background(), res.Fingerprint)
	require.NoError(t, err)
	assert.Len(t, a.Ensemble.Members, 2)
}

func TestRunErrors(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		files := defaultFiles()
		delete(files, dataset.TestIDs.Name)
		f := newFixture(t, files)

		_, err := f.pipeline(t, 0, spreading.DefaultParams()).Run(context.Background(), "x")
		assert.ErrorIs(t, err, errorx.ErrDatasetNotFound)
	})

	t.Run("no training rows", func(t *testing.T) {
		files := defaultFiles()
		files[dataset.TransactionsTrain.Name] = "client_id,trans_date,small_group,amount_rur\n"
		f := newFixture(t, files)

		_, err := f.pipeline(t, 0, spreading.DefaultParams()).Run(context.Background(), "x")
		assert.ErrorIs(t, err, errorx.ErrModelNotFitted)
	})

	t.Run("missing column", func(t *testing.T) {
		files := defaultFiles()
		files[dataset.TrainTarget.Name] = "client_id,target\n1,0\n"
		f := newFixture(t, files)

		_, err := f.pipeline(t, 0, spreading.DefaultParams()).Run(context.Background(), "x")
		assert.ErrorIs(t, err, errorx.ErrColumnMissing)
	})
}
