package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func testConfig() config.Config {
	return config.Config{
		APIPort:                    "8080",
		Neo4jURI:                   "neo4j://127.0.0.1:1",
		Neo4jUsername:              "neo4j",
		Neo4jPassword:              "secret",
		OpenAIAPIKey:               "test-key",
		OpenAIModel:                "gpt-4o-mini",
		OpenAIFilterModel:          "gpt-5-nano",
		OpenAIEmbedModel:           "text-embedding-3-small",
		RAGTopK:                    5,
		RAGMaxTopK:                 50,
		RAGQuestionMaxChars:        2000,
		NoContextMessage:           config.DefaultNoContextMessage,
		APIMaxInFlight:             8,
		APIMaxUploadBytes:          1 << 20,
		ResilienceRetryMaxAttempts: 2,
		ResilienceBreakerEnabled:   true,
	}
}

func TestNewReportsMissingStoreConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Neo4jURI = ""
	cfg.Neo4jPassword = ""

	_, err := New(context.Background(), cfg, "api")
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if len(missing.Keys) != 2 || missing.Keys[0] != "NEO4J_URI" || missing.Keys[1] != "NEO4J_PASSWORD" {
		t.Fatalf("unexpected keys: %v", missing.Keys)
	}
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error kind, got %v", err)
	}
}

func TestNewReportsMissingModelConfig(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIAPIKey = ""

	_, err := New(context.Background(), cfg, "api")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewReportsEveryMissingQuerySideKey(t *testing.T) {
	_, err := New(context.Background(), config.Config{}, "api")

	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	want := []string{"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "OPENAI_API_KEY"}
	if !reflect.DeepEqual(missing.Keys, want) {
		t.Fatalf("unexpected keys: %v", missing.Keys)
	}
}

func TestNewLoadsThaiDictionaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words_th.txt")
	if err := os.WriteFile(path, []byte("# site words\nปีนี้\n"), 0o600); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	cfg := testConfig()
	cfg.ThaiDictionaryFile = path

	app, err := New(context.Background(), cfg, "api")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer app.Close()

	if got := app.Tokenizer.Tokenize("ราคาข้าวปีนี้"); got != "ราคา ข้าว ปีนี้" {
		t.Fatalf("dictionary file not applied: %q", got)
	}
}

func TestNewRejectsMissingThaiDictionaryFile(t *testing.T) {
	cfg := testConfig()
	cfg.ThaiDictionaryFile = filepath.Join(t.TempDir(), "absent.txt")

	_, err := New(context.Background(), cfg, "api")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
}

func TestNewTokenizerWithoutFileUsesEmbeddedDictionary(t *testing.T) {
	segmenter, err := NewTokenizer("", "ฮะฮะ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := segmenter.Tokenize("ชาวนาฮะฮะ"); got != "ชาวนา ฮะฮะ" {
		t.Fatalf("unexpected tokens %q", got)
	}
}

func TestNewWiresQuerySideWithoutOptionalDependencies(t *testing.T) {
	app, err := New(context.Background(), testConfig(), "api")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer app.Close()

	if app.Retriever == nil || app.Chat == nil || app.Chunks == nil || app.Extractor == nil {
		t.Fatalf("query side not wired: %+v", app)
	}
	if got := app.Tokenizer.Tokenize("hello world"); got != "hello world" {
		t.Fatalf("unexpected tokenizer output %q", got)
	}

	handler, err := app.Router().Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
}

func TestNewWorkerRequiresEventLogConfig(t *testing.T) {
	_, err := NewWorker(context.Background(), config.Config{}, "worker")
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if len(missing.Keys) != 2 || missing.Keys[0] != "NATS_URL" || missing.Keys[1] != "POSTGRES_DSN" {
		t.Fatalf("unexpected keys: %v", missing.Keys)
	}
}

func TestResilienceConfigOverridesDefaults(t *testing.T) {
	var calls int
	cfg := resilienceConfig(config.Config{ResilienceRetryMaxAttempts: 5, ResilienceBreakerEnabled: false}, func(string, string) { calls++ })

	if cfg.RetryMaxAttempts != 5 || cfg.BreakerEnabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BreakerMinRequests == 0 || cfg.RetryInitialBackoff == 0 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	cfg.OnStateChange("neo4j.read", "open")
	if calls != 1 {
		t.Fatalf("expected hook to be kept, got %d calls", calls)
	}
}
