package models

import "fmt"

// AskRequest is a question scoped to one document or to a folder/topic filter.
type AskRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id,omitempty"`
	Folder     string `json:"folder,omitempty"`
	Topic      string `json:"topic,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// Validate checks required fields and normalizes TopK.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = 5
	}
	if r.TopK > 50 {
		r.TopK = 50
	}
	return nil
}

// Source is a retrieved chunk reported alongside an answer.
type Source struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title,omitempty"`
	ChunkID       string  `json:"chunk_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
}

// AskResponse is the answer to a question plus the chunks it was grounded on.
// NoRelevantContent is set (and Answer empty) when retrieval found nothing
// above the relevance threshold; this is an explicit non-error outcome.
type AskResponse struct {
	Answer            string    `json:"answer"`
	Sources           []*Source `json:"sources"`
	NoRelevantContent bool      `json:"no_relevant_content,omitempty"`
	QueryTime         int64     `json:"query_time_ms"`
}
