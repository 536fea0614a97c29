package config

// Essential artifact file names. An index cannot be rebuilt without all of them.
const (
	FileManifest = "manifest.json"
	FileChunks   = "chunks.json"
	FileVectors  = "vectors.bin"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Blob.Provider == "" {
		cfg.Blob.Provider = "fs"
	}
	if cfg.Blob.Bucket == "" {
		cfg.Blob.Bucket = "sme-panel-indexes"
	}
	if cfg.Blob.Path == "" {
		cfg.Blob.Path = "/usr/local/var/smepanel/data/blobs"
	}
	if cfg.Docstore.DatabasePath == "" {
		cfg.Docstore.DatabasePath = "/usr/local/var/smepanel/data/db/documents.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 512
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 50
	}
	if cfg.Index.IndexType == "" {
		cfg.Index.IndexType = "hnsw"
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.KeywordWeight == 0 && cfg.Query.SemanticWeight == 0 {
		cfg.Query.KeywordWeight = 0.3
		cfg.Query.SemanticWeight = 0.7
	}
	if cfg.Query.MinScore == 0 {
		cfg.Query.MinScore = 0.25
	}
	if cfg.Query.MaxContextChars == 0 {
		cfg.Query.MaxContextChars = 12000
	}
	if cfg.Artifact.LocalDir == "" {
		cfg.Artifact.LocalDir = "/usr/local/var/smepanel/data/artifacts"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
