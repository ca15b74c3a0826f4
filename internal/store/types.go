package store

import "time"

type EntityInput struct {
	Name       string
	EntityType string
	Layer      string
	SourceFile string
	SourceHash string
	Properties map[string]any
	Tags       []string
	Body       string
}

type Entity struct {
	Name       string
	EntityType string
	Layer      string
	SourceFile string
	SourceHash string
	Tags       []string
	Properties map[string]any
	Body       string
}

type EntitySummary struct {
	Name       string
	EntityType string
	Layer      string
	Tags       []string
}

type EntityRef struct {
	Name       string
	EntityType string
	Layer      string
}

type Relationship struct {
	From      EntityRef
	To        EntityRef
	Type      string
	Direction string
	Depth     int
}

type SearchResult struct {
	Name       string
	EntityType string
	Layer      string
	Tags       []string
	Score      float64
	Snippet    string
}

// SnapshotInfo is the metadata recorded when a snapshot was built.
type SnapshotInfo struct {
	FormatVersion int
	Project       string
	BuiltAt       time.Time
	Entities      int
	Edges         int
	Schema        []byte
}
