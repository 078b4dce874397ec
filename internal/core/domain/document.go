package domain

import "time"

// Document identifies an ingested document. The core receives its text
// already extracted as plain UTF-8; once chunked a document is immutable
// and re-ingestion replaces its records wholesale.
type Document struct {
	// ID is the opaque unique identifier for the document.
	ID string

	// Name is the human-readable display name.
	Name string

	// ModuleCode optionally groups documents into a course module.
	ModuleCode string
}

// Chunk is a bounded, overlapping slice of a document's text. Chunks of
// one document carry contiguous indexes 0..Total-1 and an identical Total.
type Chunk struct {
	// Text is the chunk content. Never empty for a stored chunk.
	Text string

	// Index is the 0-based position within the document.
	Index int

	// Total is the number of chunks produced for the document.
	Total int

	// DocumentID links to the owning document.
	DocumentID string

	// DocumentName is the owning document's display name.
	DocumentName string
}

// RecordMetadata is the non-vector attribute set persisted with every
// stored record and returned by filtered lookups.
type RecordMetadata struct {
	// DocumentID links to the owning document.
	DocumentID string

	// DocumentName is the owning document's display name.
	DocumentName string

	// ChunkIndex is the chunk's 0-based position within the document.
	ChunkIndex int

	// ChunkTotal is the number of chunks for the document.
	ChunkTotal int

	// ModuleCode optionally groups documents into a course module.
	ModuleCode string

	// IngestedAt is when the record was written.
	IngestedAt time.Time
}

// StoredRecord is the durable unit owned by the vector store.
// Created by Add, destroyed only by an explicit delete-by-filter.
type StoredRecord struct {
	// VectorID is the unique record id, {document_id}_chunk_{chunk_index}.
	VectorID string

	// Embedding is the fixed-dimension vector for the chunk text.
	Embedding []float32

	// Text is the chunk content.
	Text string

	// Metadata holds the record's filterable attributes.
	Metadata RecordMetadata
}

// DocumentInfo summarises one stored document for listings.
type DocumentInfo struct {
	// ID is the document identifier.
	ID string

	// Name is the display name.
	Name string

	// ChunkCount is the number of records stored for the document.
	ChunkCount int

	// IngestedAt is when the document's records were written.
	IngestedAt time.Time
}
