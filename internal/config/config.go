// Package config loads process configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backends and providers.
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the full process configuration.
type Config struct {
	AppEnv     string `yaml:"app_env"`
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	VectorBackend string `yaml:"vector_backend"`
	QdrantHost    string `yaml:"qdrant_host"`
	QdrantPort    int    `yaml:"qdrant_port"`
	QdrantAPIKey  string `yaml:"qdrant_api_key"`
	QdrantUseTLS  bool   `yaml:"qdrant_use_tls"`
	ChromemPath   string `yaml:"chromem_path"`
	Collection    string `yaml:"collection_name"`

	EmbeddingProvider  string `yaml:"embedding_provider"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	OpenAIAPIKey       string `yaml:"openai_api_key"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`

	LLMProvider    string  `yaml:"llm_provider"`
	LLMModel       string  `yaml:"llm_model"`
	LLMTemperature float64 `yaml:"llm_temperature"`
	OllamaURL      string  `yaml:"ollama_url"`

	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	CrawlMaxPages       int     `yaml:"crawl_max_pages"`
	CrawlTimeoutSeconds int     `yaml:"crawl_timeout_seconds"`
	CrawlRate           float64 `yaml:"crawl_rate"`
	RetrieveK           int     `yaml:"retrieve_k"`
	MaxUploadMB         int     `yaml:"max_upload_mb"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AppEnv:    "development",
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "text",

		VectorBackend: BackendQdrant,
		QdrantHost:    "localhost",
		QdrantPort:    6334,
		Collection:    "langchainjs-testing",

		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingDimension: 1536,

		LLMProvider:    ProviderOpenAI,
		LLMTemperature: 0.2,
		OllamaURL:      "http://localhost:11434",

		ChunkSize:           1000,
		ChunkOverlap:        200,
		CrawlMaxPages:       20,
		CrawlTimeoutSeconds: 30,
		RetrieveK:           2,
		MaxUploadMB:         32,
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE
// (if set), then environment variables.
func Load() (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.Port = getEnv("PORT", c.Port)
	c.ServerMode = getEnvBool("SERVER_MODE", c.ServerMode)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.VectorBackend = strings.ToLower(getEnv("VECTOR_BACKEND", c.VectorBackend))
	c.QdrantHost = getEnv("QDRANT_HOST", c.QdrantHost)
	c.QdrantPort = getEnvInt("QDRANT_PORT", c.QdrantPort)
	c.QdrantAPIKey = getEnv("QDRANT_API_KEY", c.QdrantAPIKey)
	c.QdrantUseTLS = getEnvBool("QDRANT_USE_TLS", c.QdrantUseTLS)
	c.ChromemPath = getEnv("CHROMEM_PATH", c.ChromemPath)
	c.Collection = getEnv("COLLECTION_NAME", c.Collection)

	c.EmbeddingProvider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", c.EmbeddingProvider))
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingDimension = getEnvInt("EMBEDDING_DIMENSION", c.EmbeddingDimension)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)

	c.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLMProvider))
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMTemperature = getEnvFloat("LLM_TEMPERATURE", c.LLMTemperature)
	c.OllamaURL = getEnv("OLLAMA_URL", c.OllamaURL)

	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.CrawlMaxPages = getEnvInt("CRAWL_MAX_PAGES", c.CrawlMaxPages)
	c.CrawlTimeoutSeconds = getEnvInt("CRAWL_TIMEOUT_SECONDS", c.CrawlTimeoutSeconds)
	c.CrawlRate = getEnvFloat("CRAWL_RATE", c.CrawlRate)
	c.RetrieveK = getEnvInt("RETRIEVE_K", c.RetrieveK)
	c.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.MaxUploadMB)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.CrawlMaxPages <= 0 {
		errs = append(errs, fmt.Errorf("CRAWL_MAX_PAGES must be positive, got %d", c.CrawlMaxPages))
	}
	if c.CrawlTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("CRAWL_TIMEOUT_SECONDS must be positive, got %d", c.CrawlTimeoutSeconds))
	}
	if c.RetrieveK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVE_K must be positive, got %d", c.RetrieveK))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("COLLECTION_NAME is required"))
	}

	switch c.VectorBackend {
	case BackendQdrant:
		if c.QdrantHost == "" || c.QdrantPort <= 0 {
			errs = append(errs, errors.New("QDRANT_HOST and QDRANT_PORT are required for the qdrant backend"))
		}
		if c.EmbeddingDimension <= 0 {
			errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension))
		}
	case BackendChromem:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend))
	}

	for name, provider := range map[string]string{"EMBEDDING_PROVIDER": c.EmbeddingProvider, "LLM_PROVIDER": c.LLMProvider} {
		switch provider {
		case ProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required when %s=openai", name))
			}
		case ProviderOllama:
		default:
			errs = append(errs, fmt.Errorf("unknown %s %q", name, provider))
		}
	}

	return errors.Join(errs...)
}

// IsProduction reports whether error details must be withheld from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
