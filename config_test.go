package docpipe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileDefaults(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, "docpipe.db", cfg.DBPath)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
	assert.Equal(t, 1000, cfg.Chunker.MaxTokensPerParagraph)
	assert.NoError(t, cfg.Pipeline.Validate())
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /var/lib/docpipe
ai:
  embedding_model: text-embedding-3-small
  embedding_host: http://embeddings.internal:8080
chunker:
  max_tokens_per_paragraph: 500
  overlap_tokens: 50
pipeline:
  workers: 8
  max_retries_before_poison: 5
`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docpipe", cfg.DBPath)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	// Omitted fields keep their defaults.
	assert.Equal(t, "cl100k_base", cfg.AI.Encoding)
	assert.Equal(t, 500, cfg.Chunker.MaxTokensPerParagraph)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetriesBeforePoison)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.LockDuration)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embeddings.internal:8080/v1", aiCfg.EmbeddingHost)

	opts := cfg.ChunkerOptions()
	require.NoError(t, opts.Validate())
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: [unclosed"), 0o644))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}
