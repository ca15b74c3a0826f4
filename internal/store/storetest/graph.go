// Package storetest provides an in-memory store.Graph for tests.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"hotgraph/internal/store"
)

// ErrClosed is returned by every query against a closed Graph.
var ErrClosed = errors.New("storetest: graph closed")

var _ store.Graph = (*Graph)(nil)

// Graph serves a fixed set of entities. Version is stamped into every result so
// tests can tell which graph answered a call.
type Graph struct {
	Version       string
	Entities      []store.Entity
	Relationships []store.Relationship
	Placeholders  []store.EntitySummary
	SnapshotInfo  store.SnapshotInfo

	// CloseErr is returned from Close.
	CloseErr error
	// Gate, when set, blocks GetEntity until it is closed. Entered, when set,
	// receives a value as each blocked call starts waiting.
	Gate    chan struct{}
	Entered chan struct{}

	mu     sync.Mutex
	closed bool
	closes atomic.Int32
}

// New returns a Graph holding one entity per name.
func New(version string, names ...string) *Graph {
	g := &Graph{Version: version, SnapshotInfo: store.SnapshotInfo{FormatVersion: 1, Project: version}}
	for _, name := range names {
		g.Entities = append(g.Entities, store.Entity{
			Name:       name,
			EntityType: "npc",
			Layer:      "setting",
			Properties: map[string]any{"version": version},
			Tags:       []string{},
		})
	}
	g.SnapshotInfo.Entities = len(g.Entities)
	return g
}

// Closes reports how many times Close was called.
func (g *Graph) Closes() int {
	return int(g.closes.Load())
}

func (g *Graph) IsClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Graph) check() error {
	if g.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (g *Graph) GetEntity(ctx context.Context, name, entityType string) (*store.Entity, error) {
	if g.Gate != nil {
		if g.Entered != nil {
			g.Entered <- struct{}{}
		}
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	for _, e := range g.Entities {
		if strings.EqualFold(e.Name, name) && (entityType == "" || e.EntityType == entityType) {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (g *Graph) GetRelationships(ctx context.Context, name, relType, direction string, depth int) ([]store.Relationship, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	var out []store.Relationship
	for _, rel := range g.Relationships {
		if strings.EqualFold(rel.From.Name, name) && (relType == "" || rel.Type == relType) && rel.Depth <= depth {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (g *Graph) ListEntities(ctx context.Context, entityType, layer, tag string) ([]store.EntitySummary, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	out := []store.EntitySummary{}
	for _, e := range g.Entities {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		if layer != "" && e.Layer != layer {
			continue
		}
		out = append(out, store.EntitySummary{Name: e.Name, EntityType: e.EntityType, Layer: e.Layer, Tags: e.Tags})
	}
	return out, nil
}

func (g *Graph) ListEntitiesWithProperties(ctx context.Context) ([]store.Entity, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return append([]store.Entity{}, g.Entities...), nil
}

func (g *Graph) Search(ctx context.Context, query, layer, entityType string) ([]store.SearchResult, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	out := []store.SearchResult{}
	for _, e := range g.Entities {
		if strings.Contains(strings.ToLower(e.Name), strings.ToLower(query)) {
			out = append(out, store.SearchResult{Name: e.Name, EntityType: e.EntityType, Layer: e.Layer, Score: 1, Snippet: g.Version})
		}
	}
	return out, nil
}

func (g *Graph) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return []map[string]any{{"version": g.Version, "query": query}}, nil
}

func (g *Graph) ListDanglingPlaceholders(ctx context.Context) ([]store.EntitySummary, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return append([]store.EntitySummary{}, g.Placeholders...), nil
}

func (g *Graph) ListOrphanedEntities(ctx context.Context) ([]store.EntitySummary, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return []store.EntitySummary{}, nil
}

func (g *Graph) ListDuplicateNames(ctx context.Context) ([]store.EntitySummary, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return []store.EntitySummary{}, nil
}

func (g *Graph) Info(ctx context.Context) (*store.SnapshotInfo, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	info := g.SnapshotInfo
	return &info, nil
}

func (g *Graph) Close(ctx context.Context) error {
	g.closes.Add(1)
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return g.CloseErr
}
