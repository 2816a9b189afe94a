package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-service/internal/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		Provider: config.ProviderConfig{BaseURL: config.DefaultProviderBaseURL, Timeout: time.Second},
		FineTuning: config.FineTuningConfig{
			UploadPollAttempts:  1,
			RecheckPollAttempts: 1,
			DownloadDir:         t.TempDir(),
		},
		LogStore: config.LogStoreConfig{
			Driver:     driver,
			SQLitePath: filepath.Join(t.TempDir(), "logs", "studio.db"),
		},
	}
}

func TestNew_WithoutLogStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.DriverNone))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.GenerationLog.Enabled())
	assert.False(t, a.ProviderConfigured())
	assert.NotNil(t, a.FineTuning)
	assert.NotNil(t, a.Checkpoints)
}

func TestNew_SQLiteLogStore(t *testing.T) {
	cfg := testConfig(t, config.DriverSQLite)
	cfg.Provider.APIKey = "key"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.GenerationLog.Enabled())
	assert.True(t, a.ProviderConfigured())
	assert.NoError(t, a.GenerationLog.Ping(context.Background()))
	assert.FileExists(t, cfg.LogStore.SQLitePath)
}

func TestNew_RejectsBadLogStore(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "mongo"))
	assert.ErrorContains(t, err, `unknown log store driver "mongo"`)

	_, err = New(context.Background(), testConfig(t, config.DriverPostgres))
	assert.ErrorContains(t, err, "requires DATABASE_URL")
}
