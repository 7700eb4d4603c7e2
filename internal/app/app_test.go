package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/config"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Session: config.SessionConfig{
			ID:                 "2025",
			LegislatureOrdinal: 69,
			SessionOrdinal:     20251,
		},
		API: config.APIConfig{
			BaseURL:        "https://api.example.gov",
			BillsListURL:   "https://example.com/list-bills-%s.json",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Paths: config.PathsConfig{DataDir: t.TempDir()},
		Fetch: config.FetchConfig{Concurrency: 2},
		Compress: config.CompressConfig{
			Quality:           "ebook",
			MinSavingsPercent: 5,
		},
		Storage: config.StorageConfig{
			Provider:              "memory",
			Prefix:                "capitol-tracker",
			ContentType:           "application/pdf",
			MaxConcurrentRequests: 4,
		},
		CDN:    config.CDNConfig{Provider: "noop"},
		PubSub: config.PubSubConfig{Provider: "noop"},
		DB:     config.DBConfig{Provider: "noop"},
		Server: config.ServerConfig{Port: 8080},
	}
}

// The scheduled workflow runs fetch, compress, and index on a machine with
// no cloud credentials; wiring with the memory store must never dial out.
func TestNewWithoutCloudCredentials(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), localConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	fetchStage, err := a.FetchStage()
	require.NoError(t, err)
	assert.Equal(t, "fetch", fetchStage.Name())
	assert.Equal(t, "compress", a.CompressStage(false).Name())
	assert.Equal(t, "index", a.IndexStage().Name())
	assert.Equal(t, "deploy", a.DeployStage(false).Name())
	assert.NotNil(t, a.Runner())
}

func TestNewRejectsUnknownStorageProvider(t *testing.T) {
	t.Parallel()

	cfg := localConfig(t)
	cfg.Storage.Provider = "s3"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage provider")
}
