// Package vector provides similarity math and vector index drivers for
// claim and action embeddings.
package vector

import "context"

// Document kinds stored in an index.
const (
	KindClaim  = "claim"
	KindAction = "action"
)

// Document is an indexed embedding for a persisted claim or action.
type Document struct {
	// ID is the memory record ID the embedding belongs to.
	ID string

	// Kind is KindClaim or KindAction.
	Kind string

	// ConversationID is the conversation that produced the record.
	ConversationID string

	// Embedding is the vector representation of the record's canonical text.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
