package domain

import "time"

// Document is the readable text of one fetched webpage. It is never mutated
// after the loader returns it.
type Document struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"-"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Passage is a contiguous slice of Document.Content. Offset counts runes.
type Passage struct {
	Position int    `json:"position"`
	Offset   int    `json:"offset"`
	Text     string `json:"text"`
}
