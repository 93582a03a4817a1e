package domain

import "context"

// Document represents a single text file loaded into the system.
type Document struct {
	Filename string
	Content  string
}

// Metadata holds the structured fields derived from a document's raw text.
// Empty strings mean the field was not found.
type Metadata struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Date     string `json:"date,omitempty"`
	Author   string `json:"author,omitempty"`
	Location string `json:"location,omitempty"`
}

// ChunkRecord is the atomic unit of retrieval.
//
// GlobalIndex is the record's position in the corpus and the only identifier
// that is unique across documents. LocalChunkID restarts at 0 for every
// document and must never be used to address a record for mutation.
type ChunkRecord struct {
	GlobalIndex    int     `json:"global_index"`
	Filename       string  `json:"filename"`
	Title          string  `json:"title"`
	LocalChunkID   int     `json:"local_chunk_id"`
	TotalChunks    int     `json:"total_chunks"`
	Date           string  `json:"date,omitempty"`
	Author         string  `json:"author,omitempty"`
	Location       string  `json:"location,omitempty"`
	ChunkText      string  `json:"chunk_text"`
	RelevanceScore float64 `json:"stored_relevance"`
}

// Field returns the named metadata field and whether the record has a value for it.
func (r ChunkRecord) Field(name string) (string, bool) {
	var v string
	switch name {
	case "filename":
		v = r.Filename
	case "title":
		v = r.Title
	case "date":
		v = r.Date
	case "author":
		v = r.Author
	case "location":
		v = r.Location
	default:
		return "", false
	}
	return v, v != ""
}

// SearchResult represents a matching chunk with the relevance computed for this query.
type SearchResult struct {
	Chunk ChunkRecord `json:"chunk"`
	Score float64     `json:"relevance_score"`
}

// DocumentMetadata summarises one ingested document.
type DocumentMetadata struct {
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"`
	Author      string `json:"author,omitempty"`
	Location    string `json:"location,omitempty"`
	TotalChunks int    `json:"total_chunks"`
}

// ContextRecord is what the answer generator sees of a search result.
type ContextRecord struct {
	Title     string
	Author    string
	Date      string
	ChunkText string
}

// Source echoes a context record back to the caller alongside an answer.
type Source struct {
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	Date           string  `json:"date"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkText      string  `json:"chunk_text"`
}

// Answer is the payload returned for a question. When generation fails Text
// carries the error message, Confidence is 0 and Err is set.
type Answer struct {
	Text       string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Err        error    `json:"-"`
}

// Chunker splits text into overlapping passages.
type Chunker interface {
	Split(text string) []string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Generator composes an answer to question grounded in the given context.
// Implementations may call out to a remote model and may fail.
type Generator interface {
	Name() string
	Generate(ctx context.Context, question string, contexts []ContextRecord) (string, error)
}
