package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderCohere = "cohere"
	ProviderLocal  = "local"

	StorePgvector = "pgvector"
	StoreMemory   = "memory"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type RerankConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// PipelineConfig carries the chunking and retrieval knobs. The defaults are
// the canonical values the rest of the system is tuned around: 1000-token
// chunks with 200 tokens of overlap, a 50-candidate fetch narrowed to 10 by
// MMR and to 3 by the reranker.
type PipelineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	FetchK       int
	PoolK        int
	TopN         int
}

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	StoreKind   string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Rerank     RerankConfig
	Pipeline   PipelineConfig
}

func Load() Config {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	rerankProvider := getEnv("RERANK_PROVIDER", ProviderCohere)
	cohereKey := getEnv("COHERE_API_KEY", "")
	if rerankProvider == ProviderCohere && cohereKey == "" {
		rerankProvider = ProviderLocal
	}

	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/mini-rag?sslmode=disable"),
		StoreKind:   getEnv("VECTOR_STORE", StorePgvector),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Rerank: RerankConfig{
			Provider: rerankProvider,
			Model:    getEnv("RERANK_MODEL", "rerank-english-v3.0"),
			APIKey:   cohereKey,
			BaseURL:  getEnv("COHERE_BASE_URL", ""),
		},
		Pipeline: PipelineConfig{
			ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
			FetchK:       getEnvInt("RETRIEVAL_FETCH_K", 50),
			PoolK:        getEnvInt("RETRIEVAL_POOL_K", 10),
			TopN:         getEnvInt("RETRIEVAL_TOP_N", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
