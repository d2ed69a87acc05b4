package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	httpadapter "github.com/kirillkom/agrisense-rag/internal/adapters/http"
	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
	"github.com/kirillkom/agrisense-rag/internal/core/usecase"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/cache/embcache"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/cache/redis"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/extractor/document"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/llm/openai"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/nlp/thai"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/agrisense-rag/internal/observability/metrics"
)

// App holds the wired query side: retrieval, answering and document reads.
type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Tokenizer ports.Tokenizer
	Retriever ports.Retriever
	Chat      ports.ChatService
	Chunks    ports.DocumentChunkReader
	Extractor ports.TextExtractor
	Store     *neo4j.Store

	closeFns []func()
}

// New wires the query side. The event publisher and the embedding cache are
// optional and only created when NATS_URL and REDIS_ADDR are set.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.RequireQuerySide(); err != nil {
		return nil, err
	}

	tokenizer, err := NewTokenizer(cfg.ThaiDictionaryFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Metrics:   metrics.NewHTTPServerMetrics(service),
		Tokenizer: tokenizer,
		Extractor: document.NewExtractor(cfg.APIMaxUploadBytes),
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg, app.Metrics.SetBreakerState))

	store, err := neo4j.New(neo4j.Config{
		URI:           cfg.Neo4jURI,
		Username:      cfg.Neo4jUsername,
		Password:      cfg.Neo4jPassword,
		Database:      cfg.Neo4jDatabase,
		FullTextIndex: cfg.Neo4jFullTextIndex,
		VectorIndex:   cfg.Neo4jVectorIndex,
		TxTimeout:     cfg.Neo4jTxTimeout,
	}, executor)
	if err != nil {
		return nil, fmt.Errorf("init neo4j store: %w", err)
	}
	app.Store = store
	app.closeFns = append(app.closeFns, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	})

	client := openai.New(openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		ChatModel:   cfg.OpenAIModel,
		FilterModel: cfg.OpenAIFilterModel,
		EmbedModel:  cfg.OpenAIEmbedModel,
	}, executor)

	var embedder ports.Embedder = openai.NewEmbedder(client)
	if cfg.RedisAddr != "" {
		kv, err := redis.New(redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init embedding cache: %w", err)
		}
		app.closeFns = append(app.closeFns, kv.Close)
		ttl := time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second
		embedder = embcache.New(embedder, kv, cfg.OpenAIEmbedModel, ttl, app.Metrics.EmbeddingCacheCounter())
		slog.Info("embedding cache enabled", "addr", cfg.RedisAddr, "ttl", ttl)
	}

	var publisher ports.ChatEventPublisher
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:                 "agrisense-" + service,
			RetryOnFailedConnect: boolPtr(true),
			ResilienceExecutor:   executor,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init chat event publisher: %w", err)
		}
		app.closeFns = append(app.closeFns, queue.Close)
		publisher = queue
	}

	retriever := usecase.NewRetrievalUseCase(
		app.Tokenizer,
		openai.NewFilterExtractor(client),
		embedder,
		store,
		usecase.RetrievalOptions{
			DefaultLimit:     cfg.RAGTopK,
			MaxLimit:         cfg.RAGMaxTopK,
			QuestionMaxChars: cfg.RAGQuestionMaxChars,
		},
	)
	answers := usecase.NewAnswerUseCase(openai.NewGenerator(client), cfg.NoContextMessage)

	app.Retriever = retriever
	app.Chat = usecase.NewChatUseCase(retriever, answers, publisher)
	app.Chunks = usecase.NewDocumentChunksUseCase(store)

	if err := ctx.Err(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// NewTokenizer builds the Thai segmenter from the embedded dictionary and,
// when path is set, the word list stored there.
func NewTokenizer(path string, extra ...string) (*thai.Segmenter, error) {
	if strings.TrimSpace(path) == "" {
		return thai.New(extra...), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "open thai dictionary", err)
	}
	defer f.Close()

	segmenter, err := thai.NewWithDictionary(f, extra...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "read thai dictionary "+path, err)
	}
	slog.Info("thai dictionary loaded", "path", path, "words", segmenter.Size())
	return segmenter, nil
}

// Router builds the API router over the wired use cases.
func (a *App) Router() *httpadapter.Router {
	return httpadapter.NewRouter(a.Config, httpadapter.Dependencies{
		Retriever: a.Retriever,
		Chat:      a.Chat,
		Chunks:    a.Chunks,
		Extractor: a.Extractor,
		Readiness: a.Store,
		Metrics:   a.Metrics,
	})
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

// Worker persists chat events consumed from the message bus.
type Worker struct {
	Config     config.Config
	Metrics    *metrics.WorkerMetrics
	Subscriber ports.ChatEventSubscriber
	Recorder   ports.ChatEventRecorder
	Events     *postgres.ChatEventRepository

	closeFns []func()
}

func NewWorker(ctx context.Context, cfg config.Config, service string) (*Worker, error) {
	if err := cfg.RequireEventLog(); err != nil {
		return nil, err
	}

	w := &Worker{Config: cfg, Metrics: metrics.NewWorkerMetrics(service)}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	w.closeFns = append(w.closeFns, func() { _ = db.Close() })

	repo := postgres.NewChatEventRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		w.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	w.Events = repo
	w.Recorder = usecase.NewRecordChatEventUseCase(repo)

	executor := resilience.NewExecutor(resilienceConfig(cfg, nil))
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Name:                 "agrisense-" + service,
		RetryOnFailedConnect: boolPtr(true),
		ResilienceExecutor:   executor,
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	w.closeFns = append(w.closeFns, queue.Close)
	w.Subscriber = queue

	return w, nil
}

// OpenEventLog opens the chat event table without subscribing to the bus.
func OpenEventLog(ctx context.Context, cfg config.Config) (*postgres.ChatEventRepository, func(), error) {
	if cfg.PostgresDSN == "" {
		return nil, nil, &config.MissingError{Keys: []string{"POSTGRES_DSN"}}
	}
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	return postgres.NewChatEventRepository(db), func() { _ = db.Close() }, nil
}

func (w *Worker) Close() {
	for i := len(w.closeFns) - 1; i >= 0; i-- {
		w.closeFns[i]()
	}
	w.closeFns = nil
}

func resilienceConfig(cfg config.Config, onStateChange func(operation, state string)) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	// Chat events are best effort.
	out.OperationAttempts = map[string]int{"nats.publish": 2}
	out.OnStateChange = onStateChange
	return out
}

func boolPtr(v bool) *bool {
	return &v
}
