package domain

// DocumentChunk is a chunk listed in document order.
type DocumentChunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatXLSX DocumentFormat = "xlsx"
	FormatText DocumentFormat = "text"
)

type ExtractedText struct {
	Filename string         `json:"filename"`
	Format   DocumentFormat `json:"format"`
	Text     string         `json:"text"`
}
