package mcpadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

const maxSearchLimit = 50

// Tools exposes retrieval over the Model Context Protocol.
type Tools struct {
	retriever ports.Retriever
	chat      ports.ChatService
	chunks    ports.DocumentChunkReader
}

func NewTools(retriever ports.Retriever, chat ports.ChatService, chunks ports.DocumentChunkReader) *Tools {
	return &Tools{retriever: retriever, chat: chat, chunks: chunks}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Hybrid search over the agricultural policy corpus. Returns ranked passages as JSON."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in Thai or English.")),
		mcp.WithNumber("limit", mcp.Description("Maximum passages to return."), mcp.Min(1), mcp.Max(maxSearchLimit)),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.searchDocuments)

	s.AddTool(mcp.NewTool("list_document_chunks",
		mcp.WithDescription("List the chunks of a document in reading order."),
		mcp.WithString("document_name", mcp.Required(), mcp.Description("Exact document name.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.listDocumentChunks)

	if t.chat != nil {
		s.AddTool(mcp.NewTool("answer_question",
			mcp.WithDescription("Answer a question grounded in retrieved passages."),
			mcp.WithString("question", mcp.Required(), mcp.Description("Question in Thai or English.")),
			mcp.WithReadOnlyHintAnnotation(true),
		), t.answerQuestion)
	}
}

type searchResult struct {
	Passages     []domain.Passage    `json:"passages"`
	FilterSource domain.FilterSource `json:"filter_source"`
	Filters      domain.FilterSet    `json:"filters"`
}

func (t *Tools) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	retrieval, err := t.retriever.Retrieve(ctx, domain.RetrievalRequest{Question: question, Limit: limit})
	if err != nil {
		return toolError(ctx, "search_documents", err), nil
	}
	return mcp.NewToolResultJSON(searchResult{
		Passages:     retrieval.Passages,
		FilterSource: retrieval.FilterSource,
		Filters:      retrieval.Filters,
	})
}

func (t *Tools) listDocumentChunks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("document_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chunks, err := t.chunks.ListChunks(ctx, name)
	if err != nil {
		return toolError(ctx, "list_document_chunks", err), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"document": name, "chunks": chunks})
}

func (t *Tools) answerQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := t.chat.Chat(ctx, ports.ChatRequest{Question: question})
	if err != nil {
		return toolError(ctx, "answer_question", err), nil
	}

	var sb strings.Builder
	fragments := 0
	status := domain.ChatStatusOK
	for fragment, err := range session.Fragments {
		if err != nil {
			status = domain.ChatStatusError
			if errors.Is(err, context.Canceled) {
				status = domain.ChatStatusCanceled
			}
			finishSession(ctx, session, status, fragments)
			return toolError(ctx, "answer_question", err), nil
		}
		sb.WriteString(fragment)
		fragments++
	}
	finishSession(ctx, session, status, fragments)

	return mcp.NewToolResultText(sb.String()), nil
}

// finishSession records the chat outcome. A failed publish is logged and
// does not change the tool result.
func finishSession(ctx context.Context, session *ports.ChatSession, status domain.ChatStatus, fragments int) {
	if err := session.Finish(context.WithoutCancel(ctx), status, fragments); err != nil {
		slog.WarnContext(ctx, "chat_event_publish_failed",
			"tool", "answer_question",
			"status", status,
			"error", err,
		)
	}
}

// toolError keeps internal details in the log and returns a generic message.
func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	slog.ErrorContext(ctx, "mcp_tool_failed", "tool", tool, "error", err)
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError("invalid input")
	case domain.IsKind(err, domain.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case domain.IsKind(err, domain.ErrTemporary):
		return mcp.NewToolResultError("service temporarily unavailable, retry later")
	default:
		return mcp.NewToolResultError("internal error")
	}
}
