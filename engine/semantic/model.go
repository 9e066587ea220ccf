package semantic

// RecordMetadata is the metadata column persisted with each chunk.
type RecordMetadata struct {
	Source         string `json:"source"`
	ChunkIndex     int    `json:"chunk_index"`
	CharCount      int    `json:"char_count"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Record is one persisted regulation chunk with its embedding.
type Record struct {
	ID        string
	Content   string
	Metadata  RecordMetadata
	Embedding []float32
}

// Match is a ranked similarity search result, scoped to one request.
type Match struct {
	ID         string
	Content    string
	Metadata   RecordMetadata
	Similarity float64
}
