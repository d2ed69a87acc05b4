package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

const DefaultNoContextMessage = "ไม่พบเอกสารที่เกี่ยวข้องในระบบ"

var ErrStreamConsumed = errors.New("answer stream already consumed")

type AnswerUseCase struct {
	generator        ports.AnswerGenerator
	noContextMessage string
}

func NewAnswerUseCase(generator ports.AnswerGenerator, noContextMessage string) *AnswerUseCase {
	if noContextMessage == "" {
		noContextMessage = DefaultNoContextMessage
	}
	return &AnswerUseCase{
		generator:        generator,
		noContextMessage: noContextMessage,
	}
}

// StreamAnswer returns a pull-based sequence of answer fragments. Without
// passages it yields the fixed no-context message and never calls the model.
// The provider stream is opened lazily on first pull and closed when the
// consumer stops early, the context ends, or the stream completes.
func (uc *AnswerUseCase) StreamAnswer(ctx context.Context, question string, passages []domain.Passage) iter.Seq2[string, error] {
	var started atomic.Bool
	return func(yield func(string, error) bool) {
		if !started.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}

		if len(passages) == 0 {
			yield(uc.noContextMessage, nil)
			return
		}

		stream, err := uc.generator.OpenAnswerStream(ctx, question, passages)
		if err != nil {
			yield("", fmt.Errorf("open answer stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			fragment, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("receive answer fragment: %w", err))
				return
			}
			if fragment == "" {
				continue
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}
