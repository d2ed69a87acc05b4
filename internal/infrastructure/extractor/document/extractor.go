package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

const DefaultMaxBytes int64 = 20 << 20

// Extractor turns uploaded PDF, DOCX, XLSX and plain-text files into text.
type Extractor struct {
	maxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes}
}

func (e *Extractor) MaxBytes() int64 {
	return e.maxBytes
}

func (e *Extractor) Extract(ctx context.Context, filename string, body io.Reader) (*domain.ExtractedText, error) {
	format, err := formatOf(filename)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > e.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("file exceeds %d bytes", e.maxBytes))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch format {
	case domain.FormatPDF:
		text, err = extractPDF(ctx, raw)
	case domain.FormatDOCX:
		text, err = extractDOCX(raw)
	case domain.FormatXLSX:
		text, err = extractXLSX(ctx, raw)
	default:
		text, err = extractPlain(raw)
	}
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract "+string(format), err)
	}

	return &domain.ExtractedText{
		Filename: filepath.Base(filename),
		Format:   format,
		Text:     strings.TrimSpace(text),
	}, nil
}

func formatOf(filename string) (domain.DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.FormatPDF, nil
	case ".docx":
		return domain.FormatDOCX, nil
	case ".xlsx":
		return domain.FormatXLSX, nil
	case ".txt", ".md":
		return domain.FormatText, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported file type %q", filepath.Ext(filename)))
	}
}

func extractPlain(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return string(raw), nil
}
