package docpipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/chunker"
	"github.com/poiesic/docpipe/pipeline"
)

// ConfigFile is the on-disk configuration for the service. Every field has a
// working default, so an empty file is valid.
type ConfigFile struct {
	// DBPath is the database directory.
	DBPath string `yaml:"db_path"`

	AI       AIFileConfig      `yaml:"ai"`
	Chunker  ChunkerFileConfig `yaml:"chunker"`
	Pipeline pipeline.Config   `yaml:"pipeline"`
}

// AIFileConfig mirrors ai.Config for yaml loading.
type AIFileConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ProviderName   string `yaml:"provider_name"`
	Encoding       string `yaml:"encoding"`
	MaxBatchSize   int    `yaml:"max_batch_size"`
}

// ChunkerFileConfig mirrors chunker.Options for yaml loading.
type ChunkerFileConfig struct {
	MaxTokensPerLine      int `yaml:"max_tokens_per_line"`
	MaxTokensPerParagraph int `yaml:"max_tokens_per_paragraph"`
	OverlapTokens         int `yaml:"overlap_tokens"`
}

// DefaultConfigFile returns the configuration used when no file is given.
func DefaultConfigFile() *ConfigFile {
	aiDefaults := ai.DefaultConfig()
	chunkDefaults := chunker.DefaultOptions()
	return &ConfigFile{
		DBPath: "docpipe.db",
		AI: AIFileConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ProviderName:   aiDefaults.ProviderName,
			Encoding:       aiDefaults.Encoding,
			MaxBatchSize:   aiDefaults.MaxBatchSize,
		},
		Chunker: ChunkerFileConfig{
			MaxTokensPerLine:      chunkDefaults.MaxTokensPerLine,
			MaxTokensPerParagraph: chunkDefaults.MaxTokensPerParagraph,
			OverlapTokens:         chunkDefaults.OverlapTokens,
		},
		Pipeline: *pipeline.DefaultConfig(),
	}
}

// LoadConfigFile reads a yaml configuration file. Fields the file omits keep
// their defaults.
func LoadConfigFile(path string) (*ConfigFile, error) {
	cfg := DefaultConfigFile()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// AIConfig translates the file's AI section into an ai.Config.
func (c *ConfigFile) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithProviderName(c.AI.ProviderName),
		ai.WithEncoding(c.AI.Encoding),
		ai.WithMaxBatchSize(c.AI.MaxBatchSize),
	)
}

// ChunkerOptions translates the file's chunker section into chunker.Options.
func (c *ConfigFile) ChunkerOptions() chunker.Options {
	return chunker.Options{
		MaxTokensPerLine:      c.Chunker.MaxTokensPerLine,
		MaxTokensPerParagraph: c.Chunker.MaxTokensPerParagraph,
		OverlapTokens:         c.Chunker.OverlapTokens,
	}
}

// ServiceOptions translates the file into the options NewService accepts.
func (c *ConfigFile) ServiceOptions() []ServiceOption {
	pipelineCfg := c.Pipeline
	return []ServiceOption{
		WithAIConfig(c.AIConfig()),
		WithPipelineConfig(&pipelineCfg),
		WithChunkerOptions(c.ChunkerOptions()),
	}
}
