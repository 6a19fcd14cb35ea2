package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Keys         APIKeys
	Coordination CoordinationConfig
	Ai           AIConfig
	Retrieval    RetrievalConfig
	Generation   GenerationConfig
	Tracing      TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	GenerationTopic    string
}

type DatabaseConfig struct {
	Connection string
	LogLevel   string // "silent", "error", "warn" or "info"
}

type APIKeys struct {
	JwtSecret    string
	OpenAI       string
	GoogleGemini string
}

type CoordinationConfig struct {
	Store       string // "redis" or "memory"
	LockTTL     time.Duration
	ProgressTTL time.Duration
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "openai" or "gemini"
	EmbeddingModel    string
	OllamaBaseURL     string
	OpenAIBaseURL     string
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string
	Temperature       float64
	MaxOutputTokens   int
}

type RetrievalConfig struct {
	RRFK            int
	CandidatesN     int
	ChunkSize       int
	ChunkOverlap    int
	VectorStore     string // "chromem" or "pgvector"
	VectorStorePath string
}

type GenerationConfig struct {
	MinPromptLength  int
	MaxPromptLength  int
	MinPromptWords   int
	MaxQuestionCount int
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			GenerationTopic:    getEnv("QUIZ_GENERATION_TOPIC_NAME", "QUIZ_GENERATION"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			LogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		},
		Keys: APIKeys{
			JwtSecret:    getEnv("JWT_SECRET", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Coordination: CoordinationConfig{
			Store:       getEnv("COORDINATION_STORE", "redis"),
			LockTTL:     getEnvAsDuration("QUIZ_LOCK_TTL", time.Hour),
			ProgressTTL: getEnvAsDuration("QUIZ_PROGRESS_TTL", 24*time.Hour),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""), // provider default when empty
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxOutputTokens:   getEnvAsInt("QUIZ_MAX_OUTPUT_TOKENS", 4096),
		},
		Retrieval: RetrievalConfig{
			RRFK:            getEnvAsInt("RRF_K", 60),
			CandidatesN:     getEnvAsInt("RETRIEVAL_CANDIDATES_N", 20),
			ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
			VectorStore:     getEnv("VECTOR_STORE", "chromem"),
			VectorStorePath: getEnv("VECTOR_STORE_PATH", "./data/vectors"),
		},
		Generation: GenerationConfig{
			MinPromptLength:  getEnvAsInt("QUIZ_MIN_PROMPT_LENGTH", 10),
			MaxPromptLength:  getEnvAsInt("QUIZ_MAX_PROMPT_LENGTH", 2000),
			MinPromptWords:   getEnvAsInt("QUIZ_MIN_PROMPT_WORDS", 3),
			MaxQuestionCount: getEnvAsInt("QUIZ_MAX_QUESTION_COUNT", 50),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-quiz-generator-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90m") or plain seconds ("3600").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
