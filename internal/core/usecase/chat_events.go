package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

type RecordChatEventUseCase struct {
	repo ports.ChatEventRepository
}

func NewRecordChatEventUseCase(repo ports.ChatEventRepository) *RecordChatEventUseCase {
	return &RecordChatEventUseCase{repo: repo}
}

func (uc *RecordChatEventUseCase) Record(ctx context.Context, event domain.ChatEvent) error {
	if event.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record chat event", errors.New("event id is required"))
	}
	if event.CreatedAt.IsZero() {
		return domain.WrapError(domain.ErrInvalidInput, "record chat event", errors.New("event timestamp is required"))
	}
	if event.PassageIDs == nil {
		event.PassageIDs = []string{}
	}
	if err := uc.repo.SaveChatEvent(ctx, event); err != nil {
		return fmt.Errorf("save chat event: %w", err)
	}
	return nil
}
