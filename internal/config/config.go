package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	LLM      LLMConfig      `yaml:"llm"`
	Routing  RoutingConfig  `yaml:"routing"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Port    int    `yaml:"port" env:"PORT"`
	GinMode string `yaml:"gin_mode" env:"GIN_MODE"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // console / json
}

// DataConfig は静的データファイルのパス
type DataConfig struct {
	LocationsPath  string `yaml:"locations_path" env:"LOCATIONS_PATH"`
	RouteCachePath string `yaml:"route_cache_path" env:"ROUTE_CACHE_PATH"`
}

// LLMConfig はLLMプロバイダー設定
type LLMConfig struct {
	Provider        string       `yaml:"provider" env:"LLM_PROVIDER"` // cloud / local / mock / auto
	FallbackEnabled bool         `yaml:"fallback_enabled" env:"LLM_FALLBACK_ENABLED"`
	Cloud           CloudConfig  `yaml:"cloud"`
	Ollama          OllamaConfig `yaml:"ollama"`
}

// CloudConfig はOpenAI互換クラウドAPIの設定
type CloudConfig struct {
	APIKey         string  `yaml:"api_key" env:"QWEN_API_KEY"` // 環境変数から読み込み推奨
	BaseURL        string  `yaml:"base_url" env:"QWEN_API_BASE"`
	Model          string  `yaml:"model" env:"QWEN_MODEL"`
	ModelFast      string  `yaml:"model_fast" env:"QWEN_MODEL_FAST"`
	MaxTokens      int     `yaml:"max_tokens" env:"QWEN_MAX_TOKENS"`
	Temperature    float64 `yaml:"temperature" env:"QWEN_TEMPERATURE"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"QWEN_TIMEOUT"`
}

// OllamaConfig はローカルLLMサーバーの設定
type OllamaConfig struct {
	BaseURL        string  `yaml:"base_url" env:"OLLAMA_BASE_URL"`
	Model          string  `yaml:"model" env:"OLLAMA_MODEL"`
	ModelFast      string  `yaml:"model_fast" env:"OLLAMA_MODEL_FAST"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"OLLAMA_TIMEOUT"`
	NumCtx         int     `yaml:"num_ctx" env:"OLLAMA_NUM_CTX"`
	Temperature    float64 `yaml:"temperature" env:"OLLAMA_TEMPERATURE"`
}

// RoutingConfig はルート提案パイプラインの設定
type RoutingConfig struct {
	CandidateCount   int  `yaml:"candidate_count" env:"ROUTING_CANDIDATE_COUNT"`
	UseRAG           bool `yaml:"use_rag" env:"ROUTING_USE_RAG"`
	RAGResults       int  `yaml:"rag_results" env:"ROUTING_RAG_RESULTS"`
	RAGContextTokens int  `yaml:"rag_context_tokens" env:"ROUTING_RAG_CONTEXT_TOKENS"`
}

// DatabaseConfig は車両状態を読むためのDB設定。URLが空なら既定の車両状態を使う
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// LLM プロバイダー名
const (
	ProviderCloud = "cloud"
	ProviderLocal = "local"
	ProviderMock  = "mock"
	ProviderAuto  = "auto"
)

// Load は既定値、YAMLファイル（pathが空なら省略）、環境変数の順に設定を重ねて読み込む
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパースに失敗: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default は既定値で埋めた設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			GinMode: "debug",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Data: DataConfig{
			LocationsPath:  "data/locations.json",
			RouteCachePath: "data/route_cache.json",
		},
		LLM: LLMConfig{
			Provider:        ProviderAuto,
			FallbackEnabled: true,
			Cloud: CloudConfig{
				BaseURL:        "https://dashscope.aliyuncs.com/compatible-mode/v1",
				Model:          "qwen-plus",
				ModelFast:      "qwen-turbo",
				MaxTokens:      2048,
				Temperature:    0.7,
				TimeoutSeconds: 30,
			},
			Ollama: OllamaConfig{
				BaseURL:        "http://localhost:11434",
				Model:          "qwen3:1.7b",
				ModelFast:      "qwen3:1.7b",
				TimeoutSeconds: 60,
				NumCtx:         4096,
				Temperature:    0.7,
			},
		},
		Routing: RoutingConfig{
			CandidateCount:   4,
			UseRAG:           true,
			RAGResults:       5,
			RAGContextTokens: 800,
		},
	}
}

// Validate は設定値の整合性を確認する
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderCloud, ProviderLocal, ProviderMock, ProviderAuto:
	default:
		return fmt.Errorf("llm.provider が不正です: %q (cloud/local/mock/auto)", c.LLM.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port が不正です: %d", c.Server.Port)
	}
	if c.Routing.CandidateCount <= 0 {
		return fmt.Errorf("routing.candidate_count は1以上を指定してください")
	}
	if c.Routing.CandidateCount > 10 {
		return fmt.Errorf("routing.candidate_count は10以下を指定してください")
	}
	if c.Data.LocationsPath == "" {
		return fmt.Errorf("data.locations_path は必須です")
	}
	return nil
}

// HasCloudAPIKey はクラウドAPIキーが設定されているか
func (c *Config) HasCloudAPIKey() bool {
	return c.LLM.Cloud.APIKey != ""
}
