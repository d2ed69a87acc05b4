package domain

import "time"

type ChatStatus string

const (
	ChatStatusOK       ChatStatus = "ok"
	ChatStatusError    ChatStatus = "error"
	ChatStatusCanceled ChatStatus = "canceled"
)

// ChatEvent describes one completed chat exchange.
type ChatEvent struct {
	ID           string       `json:"id"`
	RequestID    string       `json:"request_id,omitempty"`
	Question     string       `json:"question"`
	PassageIDs   []string     `json:"passage_ids"`
	FilterSource FilterSource `json:"filter_source"`
	NoContext    bool         `json:"no_context"`
	Status       ChatStatus   `json:"status"`
	Fragments    int          `json:"fragments"`
	DurationMS   int64        `json:"duration_ms"`
	CreatedAt    time.Time    `json:"created_at"`
}
