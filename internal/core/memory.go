package core

import "time"

// MemoryRecord is one vector in the memory index, keyed by post URI.
type MemoryRecord struct {
	ID        string
	Vector    []float32
	Text      string
	CID       string
	CreatedAt time.Time
	Position  int
	RunID     string
}

// Match is a memory record returned by a similarity query.
type Match struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Position   int       `json:"position"`
	Similarity float64   `json:"similarity"`
}
