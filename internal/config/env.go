package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by LLM_PROVIDER. "primary" and "secondary" are aliases
// for openai and azure.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	StoreBackendPostgres = "postgres"
	StoreBackendSQLite   = "sqlite"

	FileBackendLocal = "local"
	FileBackendS3    = "s3"
)

type Config struct {
	ProjectName string
	APIV1Prefix string
	Port        string
	CORSOrigins []string
	MaxUploadMB int

	LogLevel  string
	LogFormat string

	StoreBackend string
	DatabaseURL  string
	SQLitePath   string

	FileBackend  string
	UploadDir    string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	S3Endpoint   string

	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string
	GeminiAPIKey    string
	GeminiModel     string
	EmbedDim        int
	EmbedMaxRetries int
	EmbedRPS        float64
	EmbedBurst      int

	Ingest IngestSettings
}

// IngestSettings tunes chunking and the embedding fan-out.
type IngestSettings struct {
	ChunkSize        int
	ChunkOverlap     int
	TokenEncoding    string
	EmbedConcurrency int
	EmbedBatchSize   int
	EmbedTimeout     time.Duration
	IngestTimeout    time.Duration
}

// LoadConfig loads .env (if present) and the environment, then validates the result.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ProjectName: getEnv("PROJECT_NAME", "AskFlow API"),
		APIV1Prefix: getEnv("API_V1_STR", "/api/v1"),
		Port:        getEnv("PORT", "8000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 50),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", "askflow.db"),

		FileBackend:  strings.ToLower(getEnv("FILE_STORAGE", FileBackendLocal)),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "askflow-docs"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),

		Provider:        normalizeProvider(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		AzureAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2023-05-15"),
		AzureDeployment: getEnv("AZURE_EMBEDDING_DEPLOYMENT_NAME", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		EmbedDim:        getEnvInt("EMBED_DIM", 1536),
		EmbedMaxRetries: getEnvInt("EMBED_MAX_RETRIES", 2),
		EmbedRPS:        getEnvFloat("EMBED_RPS", 0),
		EmbedBurst:      getEnvInt("EMBED_BURST", 1),

		Ingest: IngestSettings{
			ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
			TokenEncoding:    getEnv("TOKEN_ENCODING", "cl100k_base"),
			EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
			EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 1),
			EmbedTimeout:     getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
			IngestTimeout:    getEnvDuration("INGEST_TIMEOUT", 5*time.Minute),
		},
	}

	if cfg.DatabaseURL == "" && cfg.StoreBackend == StoreBackendPostgres {
		cfg.DatabaseURL = assemblePostgresURL()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with CHUNK_SIZE %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}
	if c.Ingest.EmbedConcurrency <= 0 || c.Ingest.EmbedBatchSize <= 0 {
		errs = append(errs, errors.New("EMBED_CONCURRENCY and EMBED_BATCH_SIZE must be positive"))
	}
	if c.EmbedDim <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim))
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY not set"))
		}
	case ProviderAzure:
		if c.AzureAPIKey == "" || c.AzureEndpoint == "" || c.AzureDeployment == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and AZURE_EMBEDDING_DEPLOYMENT_NAME are required for azure"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider))
	}

	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL or POSTGRES_* not set"))
		}
	case StoreBackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.FileBackend {
	case FileBackendLocal:
	case FileBackendS3:
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" || c.BucketName == "" {
			errs = append(errs, errors.New("AWS_ACCESS_KEY, AWS_SECRET_KEY and BUCKET_NAME are required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FILE_STORAGE %q", c.FileBackend))
	}

	return errors.Join(errs...)
}

func normalizeProvider(p string) string {
	switch p = strings.ToLower(strings.TrimSpace(p)); p {
	case "primary":
		return ProviderOpenAI
	case "secondary":
		return ProviderAzure
	default:
		return p
	}
}

// assemblePostgresURL builds a DSN from POSTGRES_* when DATABASE_URL is absent.
func assemblePostgresURL() string {
	host := getEnv("POSTGRES_HOST", "")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "")),
		Host:   host + ":" + getEnv("POSTGRES_PORT", "5432"),
		Path:   "/" + getEnv("POSTGRES_DB", "askflow"),
	}
	return u.String()
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("env value is not a float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
