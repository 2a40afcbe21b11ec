package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	WebHost              string        `mapstructure:"WEB_HOST"`
	WebPort              int           `mapstructure:"WEB_PORT"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	MainLLMHost          string        `mapstructure:"MAIN_LLM_HOST"`
	EmbeddingLLMHost     string        `mapstructure:"EMBEDDING_LLM_HOST"`
	EmbeddingDimension   int           `mapstructure:"EMBEDDING_DIMENSION"`
	EmbeddingCacheSize   int           `mapstructure:"EMBEDDING_CACHE_SIZE"`
	MaxRetries           int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds    time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	LLMRequestTimeout    time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	LLMBackoffMaxSeconds time.Duration `mapstructure:"LLM_BACKOFF_MAX_SECONDS"`
	LLMMaxTokens         int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature       float64       `mapstructure:"LLM_TEMPERATURE"`

	VectorBackend      string `mapstructure:"VECTOR_BACKEND"`
	IndexName          string `mapstructure:"INDEX_NAME"`
	ChromemPersistPath string `mapstructure:"CHROMEM_PERSIST_PATH"`
	PostgresURL        string `mapstructure:"POSTGRES_URL"`

	ChunkSize       int `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap    int `mapstructure:"CHUNK_OVERLAP"`
	ContextMaxChars int `mapstructure:"CONTEXT_MAX_CHARS"`
	SearchTopK      int `mapstructure:"SEARCH_TOP_K"`

	UploadDir        string `mapstructure:"UPLOAD_DIR"`
	MaxUploadMB      int64  `mapstructure:"MAX_UPLOAD_MB"`
	EmbedBatchSize   int    `mapstructure:"EMBED_BATCH_SIZE"`
	CrossRefPath     string `mapstructure:"CROSS_REF_PATH"`
	OCRBinary        string `mapstructure:"OCR_BINARY"`
	DefaultJurisdict string `mapstructure:"DEFAULT_JURISDICTION"`

	RateLimitQuestionsPerMin int `mapstructure:"RATE_LIMIT_QUESTIONS_PER_MIN"`
	RateLimitUploadsPerHour  int `mapstructure:"RATE_LIMIT_UPLOADS_PER_HOUR"`
	RateLimitBurstSize       int `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("WEB_HOST", "0.0.0.0")
	viper.SetDefault("WEB_PORT", 5001)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAIN_LLM_HOST", "http://localhost:8080")
	viper.SetDefault("EMBEDDING_LLM_HOST", "http://localhost:8081")
	viper.SetDefault("EMBEDDING_DIMENSION", 384)
	viper.SetDefault("EMBEDDING_CACHE_SIZE", 4096)
	viper.SetDefault("MAX_RETRIES", 5)
	viper.SetDefault("RETRY_DELAY_SECONDS", 2)
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 300)
	viper.SetDefault("LLM_BACKOFF_MAX_SECONDS", 30)
	viper.SetDefault("LLM_MAX_TOKENS", 1024)
	viper.SetDefault("LLM_TEMPERATURE", 0.1)
	viper.SetDefault("VECTOR_BACKEND", "chromem")
	viper.SetDefault("INDEX_NAME", "legal-documents")
	viper.SetDefault("CHROMEM_PERSIST_PATH", "./data/chromem")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("CHUNK_SIZE", 1000)
	viper.SetDefault("CHUNK_OVERLAP", 200)
	viper.SetDefault("CONTEXT_MAX_CHARS", 4000)
	viper.SetDefault("SEARCH_TOP_K", 5)
	viper.SetDefault("UPLOAD_DIR", "./uploads")
	viper.SetDefault("MAX_UPLOAD_MB", 50)
	viper.SetDefault("EMBED_BATCH_SIZE", 100)
	viper.SetDefault("CROSS_REF_PATH", "./data/cross_references.json")
	viper.SetDefault("OCR_BINARY", "")
	viper.SetDefault("DEFAULT_JURISDICTION", "federal")
	viper.SetDefault("RATE_LIMIT_QUESTIONS_PER_MIN", 30)
	viper.SetDefault("RATE_LIMIT_UPLOADS_PER_HOUR", 20)
	viper.SetDefault("RATE_LIMIT_BURST_SIZE", 5)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.VectorBackend = strings.ToLower(strings.TrimSpace(config.VectorBackend))
	if config.VectorBackend == "" {
		config.VectorBackend = "chromem"
	}

	// Convert seconds to proper time.Duration
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second
	config.LLMBackoffMaxSeconds = config.LLMBackoffMaxSeconds * time.Second

	return &config
}
