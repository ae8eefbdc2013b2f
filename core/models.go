package core

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Actor identifies which party a record is attributed to.
type Actor string

const (
	ActorPetitioner Actor = "petitioner"
	ActorRespondent Actor = "respondent"
	ActorCourt      Actor = "court"
	ActorAttorney   Actor = "attorney"
	ActorOther      Actor = "other"
)

// ExternalID generates a deterministic identifier from source content using
// BLAKE2b hashing. Identical content always produces the same identifier,
// which is what makes re-ingestion idempotent.
func ExternalID(parts ...string) string {
	h, _ := blake2b.New(16, nil)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Checksum returns a content hash used for cheap change detection on chunks.
func Checksum(content string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkExternalID derives the stable identifier for a chunk from its owning
// document and position. The scheme must stay fixed: chunk upserts match on it.
func ChunkExternalID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// Event is a normalized record of a single occurrence (an email, a filing,
// a hearing) produced by a parser.
type Event struct {
	ExternalID  string
	Type        string // free-form category: "email", "filing", "hearing", ...
	Date        string // ISO date string as found in the source, not validated
	Description string
	Actor       Actor
	SourcePath  string
	Snippet     string
}

// Continuance is a schedule-delay event with a reason and optional duration.
type Continuance struct {
	ExternalID   string
	Date         string
	Reason       string
	RequestedBy  Actor
	DurationDays int // 0 when the source gave no duration
	SourcePath   string
	Snippet      string
}

// Person is a party, attorney, or other actor referenced by events.
type Person struct {
	ExternalID string
	Name       string
	Role       string
	Email      string
	Phone      string
}

// Document is the vector-store-side owner of chunks. Its ExternalID matches
// the graph-side node for the same source record.
type Document struct {
	ExternalID string
	Title      string
	Source     string
	URL        string
}

// Chunk is a bounded text segment of a document, embedded independently.
// Index is 0-based and order-significant within the owning document.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
	ExternalID string
	Checksum   string
}

// NewChunk builds a chunk with its derived identifier and checksum populated.
func NewChunk(documentID string, index int, content string) Chunk {
	return Chunk{
		DocumentID: documentID,
		Index:      index,
		Content:    content,
		ExternalID: ChunkExternalID(documentID, index),
		Checksum:   Checksum(content),
	}
}

// SearchHit is a single ranked result from a vector, keyword, or hybrid
// search over chunks.
type SearchHit struct {
	ChunkID    string // chunk external_id
	DocumentID string
	Content    string
	Source     string
	ChunkIndex int
	Similarity float32
}
