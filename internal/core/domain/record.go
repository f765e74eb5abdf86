package domain

import "time"

// VectorRecord is what the vector store persists for each classified
// document: the embedding plus the metadata needed for retrieval.
type VectorRecord struct {
	ID         string
	Embedding  []float32
	Category   Category
	PatientRef string
	Source     string
	Snippet    string
	StoredAt   time.Time
}

// Neighbor is a retrieved record with its similarity to the query
// vector. Similarity is 1 minus cosine distance, clamped to [0,1].
type Neighbor struct {
	ID         string
	Category   Category
	PatientRef string
	Snippet    string
	Similarity float64
	StoredAt   time.Time
}

// SearchFilter narrows a neighbor search. Zero values mean no filter.
type SearchFilter struct {
	Category   Category
	PatientRef string
}
