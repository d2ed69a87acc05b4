package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/agrisense-rag/internal/adapters/mcp"
	"github.com/kirillkom/agrisense-rag/internal/bootstrap"
	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol.
	slog.SetDefault(logging.NewWithWriter(os.Stderr, "mcp", cfg.LogLevel, "json"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "mcp")
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer("agrisense-rag", version, mcpadapter.NewTools(app.Retriever, app.Chat, app.Chunks))
	if err := server.ServeStdio(s); err != nil {
		slog.Error("mcp server error", "error", err)
	}
}
