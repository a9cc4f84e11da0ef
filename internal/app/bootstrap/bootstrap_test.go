package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	root := t.TempDir()
	cfg.Storage.UploadDir = filepath.Join(root, "uploads")
	cfg.Storage.ModelDir = filepath.Join(root, "model")
	cfg.Storage.StaticDir = filepath.Join(root, "static")
	cfg.Database.DSN = "file::memory:"
	return cfg
}

func TestNewCore_SyncOnly(t *testing.T) {
	for _, reg := range []string{"file", "db"} {
		t.Run(reg, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Model.Registry = reg

			core, cleanup, err := NewCore(cfg, logger.NewNop())
			require.NoError(t, err)
			defer cleanup()

			assert.Nil(t, core.Redis)
			assert.Nil(t, core.Lmstfy)
			assert.NotNil(t, core.RunService)
			assert.DirExists(t, cfg.Storage.UploadDir)
			assert.DirExists(t, cfg.Storage.StaticDir)
		})
	}
}

func TestNewCore_UnknownRegistry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Registry = "s3"

	_, _, err := NewCore(cfg, logger.NewNop())
	assert.Error(t, err)
}
