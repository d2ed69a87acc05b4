package openai

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/agrisense-rag/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	FilterModel string
	EmbedModel  string
}

// Client is the shared provider handle. It is created once per process and
// used by the extractor, embedder and generator.
type Client struct {
	api         *openai.Client
	chatModel   string
	filterModel string
	embedModel  string
	executor    *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		chatModel:   cfg.ChatModel,
		filterModel: cfg.FilterModel,
		embedModel:  cfg.EmbedModel,
		executor:    executor,
	}
}

func (c *Client) EmbedModel() string {
	return c.embedModel
}
