package models

import "time"

// KnowledgeItem is a stored note or ingested document in the knowledge base.
type KnowledgeItem struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	SourceType      string            `json:"source_type"`
	OriginalContent string            `json:"original_content,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
