package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "medai-miner/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// HarvestConfig holds settings for the harvest stage.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of results per backend (default 50).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// OpenAlexEmail is sent with OpenAlex requests for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// InterBackendDelay is the delay between API calls to different backends (default 1s).
	InterBackendDelay time.Duration `json:"inter_backend_delay" yaml:"inter_backend_delay" mapstructure:"inter_backend_delay"`
}

// LLMConfig holds shared settings for stages that call the language-model API.
type LLMConfig struct {
	// Model is the default model identifier (e.g. "claude-haiku-4-5-20251001").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key. Usually supplied through
	// MEDAI_LLM_API_KEY or .secrets/anthropic-api-key rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retries for a transient failure of one
	// unit of work (a batch or a record). Default 3.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single completion request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// EnrichConfig holds settings for the heuristic enrichment stage.
type EnrichConfig struct {
	// Reprocess recomputes fields that are already populated.
	Reprocess bool `json:"reprocess" yaml:"reprocess" mapstructure:"reprocess"`

	Offset int `json:"offset" yaml:"offset" mapstructure:"offset"`
	Limit  int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// IDPrefix restricts the run to one source (e.g. "arxiv:").
	IDPrefix string `json:"id_prefix,omitempty" yaml:"id_prefix,omitempty" mapstructure:"id_prefix"`
}

// ClassifyConfig holds settings for the keep/remove classification stage.
type ClassifyConfig struct {
	// Model overrides LLMConfig.Model for classification.
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`

	// BatchSize is the number of records per LLM request (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// BatchDelay is the minimum interval between batch requests (default 1s).
	BatchDelay time.Duration `json:"batch_delay" yaml:"batch_delay" mapstructure:"batch_delay"`

	// MaxTokens bounds the classification response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// DescriptionChars truncates each record's description in the prompt (default 400).
	DescriptionChars int `json:"description_chars" yaml:"description_chars" mapstructure:"description_chars"`

	Offset int `json:"offset" yaml:"offset" mapstructure:"offset"`
	Limit  int `json:"limit" yaml:"limit" mapstructure:"limit"`

	IDPrefix string `json:"id_prefix,omitempty" yaml:"id_prefix,omitempty" mapstructure:"id_prefix"`
}

// MetadataConfig holds settings for the structured metadata extraction stage.
type MetadataConfig struct {
	// Model overrides LLMConfig.Model for extraction.
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`

	// MaxTokens bounds the extraction response (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// RecordDelay is the minimum interval between extraction requests (default 1s).
	RecordDelay time.Duration `json:"record_delay" yaml:"record_delay" mapstructure:"record_delay"`

	// Reprocess resubmits records that are already enriched.
	Reprocess bool `json:"reprocess" yaml:"reprocess" mapstructure:"reprocess"`

	Offset int `json:"offset" yaml:"offset" mapstructure:"offset"`
	Limit  int `json:"limit" yaml:"limit" mapstructure:"limit"`

	IDPrefix string `json:"id_prefix,omitempty" yaml:"id_prefix,omitempty" mapstructure:"id_prefix"`
}

// StoreDriver selects the record store implementation.
type StoreDriver string

const (
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the end-of-run metrics export.
type MetricsConfig struct {
	// TextfilePath, when set, receives the run's counters in Prometheus
	// text format (node-exporter textfile collector).
	TextfilePath string `json:"textfile_path,omitempty" yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Harvest  HarvestConfig  `json:"harvest" yaml:"harvest" mapstructure:"harvest"`
	Enrich   EnrichConfig   `json:"enrich" yaml:"enrich" mapstructure:"enrich"`
	Classify ClassifyConfig `json:"classify" yaml:"classify" mapstructure:"classify"`
	Metadata MetadataConfig `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
}
