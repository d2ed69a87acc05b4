package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

const DefaultNoContextMessage = "ไม่พบเอกสารที่เกี่ยวข้องในระบบ"

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	Neo4jURI           string
	Neo4jUsername      string
	Neo4jPassword      string
	Neo4jDatabase      string
	Neo4jFullTextIndex string
	Neo4jVectorIndex   string
	Neo4jTxTimeout     time.Duration

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIFilterModel string
	OpenAIEmbedModel  string

	CORSOrigins []string

	RAGTopK             int
	RAGMaxTopK          int
	RAGQuestionMaxChars int
	NoContextMessage    string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIMaxConnections     int
	APIBackpressureWaitMS int
	APIMaxUploadBytes     int64

	NATSURL     string
	NATSSubject string

	PostgresDSN string

	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	EmbedCacheTTLSeconds int

	WorkerMetricsPort string

	ThaiDictionaryFile string

	ResilienceRetryMaxAttempts int
	ResilienceBreakerEnabled   bool
}

// secretKeys may only come from the environment.
var secretKeys = map[string]struct{}{
	"NEO4J_PASSWORD": {},
	"OPENAI_API_KEY": {},
	"POSTGRES_DSN":   {},
	"REDIS_PASSWORD": {},
}

// Load reads .env (when present), the optional YAML overlay named by
// CONFIG_FILE and the process environment. Environment values win.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	overlay, err := loadOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	src := source{overlay: overlay}

	return Config{
		APIPort:   src.str("API_PORT", "8080"),
		LogLevel:  src.str("LOG_LEVEL", "info"),
		LogFormat: src.str("LOG_FORMAT", "json"),

		Neo4jURI:           src.str("NEO4J_URI", ""),
		Neo4jUsername:      src.str("NEO4J_USERNAME", ""),
		Neo4jPassword:      src.str("NEO4J_PASSWORD", ""),
		Neo4jDatabase:      src.str("NEO4J_DATABASE", "neo4j"),
		Neo4jFullTextIndex: src.str("NEO4J_FULLTEXT_INDEX", "chunk_content"),
		Neo4jVectorIndex:   src.str("NEO4J_VECTOR_INDEX", "chunk_embedding"),
		Neo4jTxTimeout:     time.Duration(src.int("NEO4J_TX_TIMEOUT_SECONDS", 15)) * time.Second,

		OpenAIAPIKey:      src.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     src.str("OPENAI_BASE_URL", ""),
		OpenAIModel:       src.str("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIFilterModel: src.str("OPENAI_FILTER_MODEL", "gpt-5-nano"),
		OpenAIEmbedModel:  src.str("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		CORSOrigins: splitList(src.str("CORS_ORIGINS", "https://agri-sense-frontend-weld.vercel.app")),

		RAGTopK:             src.int("RAG_TOP_K", 5),
		RAGMaxTopK:          src.int("RAG_MAX_TOP_K", 50),
		RAGQuestionMaxChars: src.int("RAG_QUESTION_MAX_CHARS", 2000),
		NoContextMessage:    src.str("NO_CONTEXT_MESSAGE", DefaultNoContextMessage),

		APIRateLimitRPS:       src.float("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     src.int("API_RATE_LIMIT_BURST", 0),
		APIMaxInFlight:        src.int("API_MAX_INFLIGHT", 64),
		APIMaxConnections:     src.int("API_MAX_CONNECTIONS", 0),
		APIBackpressureWaitMS: src.int("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxUploadBytes:     int64(src.int("API_MAX_UPLOAD_BYTES", 20<<20)),

		NATSURL:     src.str("NATS_URL", ""),
		NATSSubject: src.str("NATS_SUBJECT", "chat.answered"),

		PostgresDSN: src.str("POSTGRES_DSN", ""),

		RedisAddr:            src.str("REDIS_ADDR", ""),
		RedisPassword:        src.str("REDIS_PASSWORD", ""),
		RedisDB:              src.int("REDIS_DB", 0),
		EmbedCacheTTLSeconds: src.int("EMBED_CACHE_TTL_SECONDS", 86400),

		WorkerMetricsPort: src.str("WORKER_METRICS_PORT", "9090"),

		ThaiDictionaryFile: src.str("THAI_DICTIONARY_FILE", ""),

		ResilienceRetryMaxAttempts: src.int("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		ResilienceBreakerEnabled:   src.bool("RESILIENCE_BREAKER_ENABLED", true),
	}, nil
}

// MissingError lists every required variable that is unset.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing environment variables: " + strings.Join(e.Keys, ", ")
}

func (e *MissingError) Unwrap() error {
	return domain.ErrConfiguration
}

// RequireQuerySide checks the graph store and model provider credentials
// together so one error names every missing key.
func (c Config) RequireQuerySide() error {
	return require(
		[2]string{"NEO4J_URI", c.Neo4jURI},
		[2]string{"NEO4J_USERNAME", c.Neo4jUsername},
		[2]string{"NEO4J_PASSWORD", c.Neo4jPassword},
		[2]string{"OPENAI_API_KEY", c.OpenAIAPIKey},
	)
}

func (c Config) RequireEventLog() error {
	return require(
		[2]string{"NATS_URL", c.NATSURL},
		[2]string{"POSTGRES_DSN", c.PostgresDSN},
	)
}

func require(pairs ...[2]string) error {
	var missing []string
	for _, p := range pairs {
		if strings.TrimSpace(p[1]) == "" {
			missing = append(missing, p[0])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Keys: missing}
}

func loadOverlay(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, secret := secretKeys[key]; secret {
			return nil, domain.WrapError(domain.ErrConfiguration, "parse config file", fmt.Errorf("%s must be set in the environment", key))
		}
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			overlay[key] = strings.Join(parts, ",")
		default:
			overlay[key] = fmt.Sprint(v)
		}
	}
	return overlay, nil
}

type source struct {
	overlay map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.overlay[key]
}

func (s source) str(key, fallback string) string {
	v := strings.TrimSpace(s.lookup(key))
	if v == "" {
		return fallback
	}
	return v
}

func (s source) int(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func (s source) float(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) bool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
