// Package domain holds the core data types shared across the indexing
// pipeline, the search engine, and the API surface.
package domain

import "time"

// SourceRef identifies a single indexable item, local file or remote
// document, discovered under a registered directory.
type SourceRef struct {
	SourceID    string
	DisplayName string
	FileType    string
	SizeBytes   int64
	ModifiedAt  time.Time
	ContentHash string
}

// Chunk is the atomic indexable unit: a bounded text window from one
// source, carrying its embedding once semantic indexing is enabled.
type Chunk struct {
	ChunkID   string
	SourceID  string
	Ordinal   int
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// ChunkMetadata is denormalised from the owning SourceRef so search
// results can be assembled without a join back to the ledger.
type ChunkMetadata struct {
	DisplayName   string    `json:"display_name"`
	FileType      string    `json:"file_type"`
	SourceID      string    `json:"source_id"`
	Ordinal       int       `json:"ordinal"`
	TotalInSource int       `json:"total_in_source"`
	SizeBytes     int64     `json:"size_bytes"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// FileState is the ledger's per-source record used for change detection.
type FileState struct {
	SourceID   string
	SizeBytes  int64
	ModifiedAt time.Time
	ContentHash string
	ChunkIDs   []string
	IndexedAt  time.Time
}

// Classification is the outcome of comparing a fresh SourceRef against the
// ledger's last-seen FileState for that source.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassUnchanged Classification = "unchanged"
	ClassModified  Classification = "modified"
	ClassDeleted   Classification = "deleted"
)

// DirectoryStatus is the lifecycle state of a registered directory.
type DirectoryStatus string

const (
	StatusNotIndexed DirectoryStatus = "not_indexed"
	StatusIndexing   DirectoryStatus = "indexing"
	StatusIndexed    DirectoryStatus = "indexed"
	StatusError      DirectoryStatus = "error"
)

// DirectoryEntry is a registered root path and its lifecycle state.
type DirectoryEntry struct {
	Path          string          `json:"path"`
	Name          string          `json:"name"`
	Status        DirectoryStatus `json:"status"`
	Progress      float64         `json:"progress"`
	TotalFiles    int             `json:"total_files"`
	IndexedFiles  int             `json:"indexed_files"`
	LastTaskID    string          `json:"last_task_id,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	LastIndexedAt *time.Time      `json:"last_indexed_at,omitempty"`
}

// Permission is a capability tag carried by an API key.
type Permission string

const (
	PermRead   Permission = "read"
	PermSearch Permission = "search"
	PermIndex  Permission = "index"
	PermAdmin  Permission = "admin"
)

// ApiKey is a stored, hashed credential. The plaintext secret is never
// persisted; it is returned exactly once at creation time.
type ApiKey struct {
	ID            string
	Name          string
	Description   string
	CreatedAt     time.Time
	ExpiresAt     *time.Time
	Permissions   []Permission
	Active        bool
	HashedSecret  string
}

// HasPermission reports whether the key carries the given permission.
func (k ApiKey) HasPermission(p Permission) bool {
	for _, have := range k.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Expired reports whether the key's expiry has passed as of now.
func (k ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// SearchKind selects the ranking strategy for a query.
type SearchKind string

const (
	SearchKeyword  SearchKind = "keyword"
	SearchSemantic SearchKind = "semantic"
	SearchHybrid   SearchKind = "hybrid"
)

// SearchResult is one ranked hit, deduplicated to the best chunk per source.
// Highlighted carries the same window as Snippet with matched query-token
// spans wrapped in ** markers; clients that don't want the markup can
// ignore it and render Snippet instead.
type SearchResult struct {
	SourceID     string  `json:"source_id"`
	DisplayName  string  `json:"display_name"`
	FileType     string  `json:"file_type"`
	SizeBytes    int64   `json:"size_bytes"`
	Score        float64 `json:"score"`
	Snippet      string  `json:"snippet"`
	Highlighted  string  `json:"highlighted"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}
