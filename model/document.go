package model

import (
	"time"
)

// Document represents an uploaded document tracked through analysis
type Document struct {
	ID        string     `json:"id"`
	Filename  string     `json:"filename"`
	Tenant    string     `json:"tenant"`
	ObjectKey string     `json:"object_key"`
	SourceURL string     `json:"source_url"`
	Status    string     `json:"status"` // pending, processing, completed, failed
	JobID     string     `json:"job_id,omitempty"`
	Pages     []PageText `json:"pages,omitempty"`
	Entities  []Entity   `json:"entities,omitempty"`
	ErrorMsg  string     `json:"error_msg,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PageText is the aggregated text of one result page, in arrival order.
// The index counts poll responses, not physical pages of the source file.
type PageText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Entity is one annotation returned by the entity-detection service.
type Entity struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Score    float64 `json:"score"`
	Chunk    int     `json:"chunk"`
}

// Document status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
