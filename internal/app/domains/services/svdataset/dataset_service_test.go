package svdataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/dataset"
)

func newService(t *testing.T) *DatasetService {
	t.Helper()
	store, err := dataset.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewDatasetService(store, logger.NewNop())
}

func uploadAll(t *testing.T, svc *DatasetService) {
	t.Helper()
	files := map[string]string{
		dataset.TransactionsTrain.Name: "client_id,small_group,amount_rur\n1,1,10\n1,2,20\n2,1,5\n",
		dataset.TrainTarget.Name:       "client_id,bins\n1,0\n2,1\n",
		dataset.TransactionsTest.Name:  "client_id,small_group,amount_rur\n3,1,7\n",
		dataset.TestIDs.Name:           "client_id\n3\n",
	}
	for name, body := range files {
		require.NoError(t, svc.Upload(context.Background(), name, strings.NewReader(body)))
	}
}

func TestShapes(t *testing.T) {
	svc := newService(t)
	uploadAll(t, svc)

	shapes, err := svc.Shapes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][2]int{
		"transactions_train": {3, 3},
		"train_target":       {2, 2},
		"transactions_test":  {1, 3},
		"test_id":            {1, 1},
	}, shapes)
}

func TestHeads(t *testing.T) {
	svc := newService(t)
	uploadAll(t, svc)

	heads, err := svc.Heads(context.Background())
	require.NoError(t, err)
	require.Len(t, heads, 4)
	assert.Contains(t, heads["train_target"], `<table border="1" class="dataframe">`)
	assert.Contains(t, heads["train_target"], "<th>bins</th>")
}

func TestShapes_MissingDataset(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Upload(context.Background(), dataset.TestIDs.Name, strings.NewReader("client_id\n1\n")))

	_, err := svc.Shapes(context.Background())
	assert.ErrorIs(t, err, errorx.ErrDatasetNotFound)
}

func TestUpload_InvalidName(t *testing.T) {
	svc := newService(t)
	err := svc.Upload(context.Background(), "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, errorx.ErrInvalidUploadName)
}
