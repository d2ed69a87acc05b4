package openai

import (
	"fmt"
	"strings"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func buildFilterPrompt(query string) string {
	return fmt.Sprintf(`You are an expert assistant.
Given the following query, extract lists for these categories:
- section_type (e.g. รายงาน, สถานการณ์)
- crop_type (e.g. ข้าว, ยางพารา)
- key_topics (e.g. ผลกระทบ, ราคา, นโยบาย)
- organization (e.g. กระทรวงเกษตร, FAQ)

Query: %q

Respond in strict JSON only: an object with exactly the keys section_type, crop_type, key_topics, organization, each an array of strings. Use an empty array when a category has no match.`, query)
}

func buildAnswerPrompt(question string, passages []domain.Passage) string {
	var contextBuilder strings.Builder
	for idx, passage := range passages {
		fmt.Fprintf(&contextBuilder, "[%d] id=%s score=%.3f\n%s\n\n", idx+1, passage.ID, passage.Score, passage.Content)
	}

	return fmt.Sprintf(`You are an agricultural policy assistant.
Instruction:
1. Answer in English or Thai based on the question language. If the context is in Thai but the question is in English, answer in English.
2. Only use the provided context to answer.
3. Do not mention or list any sources.

Input: %s
Context:
%s`, question, contextBuilder.String())
}
