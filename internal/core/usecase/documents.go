package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

type DocumentChunksUseCase struct {
	store ports.PassageStore
}

func NewDocumentChunksUseCase(store ports.PassageStore) *DocumentChunksUseCase {
	return &DocumentChunksUseCase{store: store}
}

func (uc *DocumentChunksUseCase) ListChunks(ctx context.Context, documentName string) ([]domain.DocumentChunk, error) {
	documentName = strings.TrimSpace(documentName)
	if documentName == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list chunks", errors.New("document name is required"))
	}

	chunks, err := uc.store.ListDocumentChunks(ctx, documentName)
	if err != nil {
		return nil, fmt.Errorf("list document chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "list chunks", fmt.Errorf("document %q has no chunks", documentName))
	}
	return chunks, nil
}
