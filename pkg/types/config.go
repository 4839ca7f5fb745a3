// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreport/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceConfig holds settings for the source adapters.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the per-query result cap requested from each adapter (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableArxiv controls whether the arXiv adapter is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar adapter is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableCrossref controls whether the Crossref adapter is used.
	EnableCrossref bool `json:"enable_crossref" yaml:"enable_crossref" mapstructure:"enable_crossref"`

	// EnableOpenAlex controls whether the OpenAlex adapter is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// SemanticScholarAPIKey raises the Semantic Scholar rate limit when set.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail joins the OpenAlex polite pool when set.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// RequestsPerSecond is the per-adapter sustained request budget (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the per-adapter burst allowance (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxRetries bounds retry attempts on transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig holds settings for stages that call the language-model capability.
type LLMConfig struct {
	// Provider selects the client: "claude" or "ollama".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5", "llama3").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint; used for local Ollama.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature and MaxTokens are passed through on every generate call.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout is the per-call timeout (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// PlannerConfig holds settings for the query-planning stage.
type PlannerConfig struct {
	// QueriesPerSection is the number of queries generated per outline
	// section (default 4).
	QueriesPerSection int `json:"queries_per_section" yaml:"queries_per_section" mapstructure:"queries_per_section"`

	// MaxSections caps the outline length (default 8).
	MaxSections int `json:"max_sections" yaml:"max_sections" mapstructure:"max_sections"`
}

// RankConfig holds settings for the relevance-ranking stage. The weights are
// an application default; callers may rebalance them.
type RankConfig struct {
	// HeuristicWeight scales the lexical-overlap score (default 0.4).
	HeuristicWeight float64 `json:"heuristic_weight" yaml:"heuristic_weight" mapstructure:"heuristic_weight"`

	// LLMWeight scales the model judgment (default 0.6).
	LLMWeight float64 `json:"llm_weight" yaml:"llm_weight" mapstructure:"llm_weight"`

	// BatchSize is the number of records judged per model call (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// RetrievalConfig holds settings for the artifact-retrieval stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// ArtifactsDir is the base directory for downloaded artifacts
	// (contains pdf/ and ris/).
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir" mapstructure:"artifacts_dir"`

	// Concurrency bounds how many records retrieve in parallel (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// ElsevierAPIKey enables the publisher-API strategy when set.
	ElsevierAPIKey string `json:"elsevier_api_key,omitempty" yaml:"elsevier_api_key,omitempty" mapstructure:"elsevier_api_key"`

	// EnableBrowser controls whether the browser-automation strategy runs.
	EnableBrowser bool `json:"enable_browser" yaml:"enable_browser" mapstructure:"enable_browser"`

	// BrowserBinary is the Chromium binary used by the browser strategy.
	BrowserBinary string `json:"browser_binary,omitempty" yaml:"browser_binary,omitempty" mapstructure:"browser_binary"`

	// BrowserTimeout bounds one browser download attempt (default 90s).
	BrowserTimeout time.Duration `json:"browser_timeout" yaml:"browser_timeout" mapstructure:"browser_timeout"`
}

// StoreConfig holds settings for the session store.
type StoreConfig struct {
	// DataDir is the directory holding the session database.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Source    SourceConfig    `json:"source" yaml:"source" mapstructure:"source"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Planner   PlannerConfig   `json:"planner" yaml:"planner" mapstructure:"planner"`
	Rank      RankConfig      `json:"rank" yaml:"rank" mapstructure:"rank"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Source: SourceConfig{
			HTTPConfig:            HTTPConfig{Timeout: 30 * time.Second, UserAgent: "litreport/0.1"},
			MaxResults:            20,
			EnableArxiv:           true,
			EnableSemanticScholar: true,
			EnableCrossref:        true,
			EnableOpenAlex:        true,
			RequestsPerSecond:     1,
			Burst:                 1,
			MaxRetries:            3,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3",
			Temperature: 0.2,
			MaxTokens:   2048,
			MaxRetries:  3,
			Timeout:     120 * time.Second,
		},
		Planner: PlannerConfig{
			QueriesPerSection: 4,
			MaxSections:       8,
		},
		Rank: RankConfig{
			HeuristicWeight: 0.4,
			LLMWeight:       0.6,
			BatchSize:       5,
		},
		Retrieval: RetrievalConfig{
			HTTPConfig:     HTTPConfig{Timeout: 60 * time.Second, UserAgent: "litreport/0.1"},
			ArtifactsDir:   "artifacts",
			Concurrency:    3,
			BrowserTimeout: 90 * time.Second,
		},
		Store: StoreConfig{
			DataDir: "data",
		},
	}
}
