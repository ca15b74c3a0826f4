package livegraph

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"hotgraph/internal/dataset"
	"hotgraph/internal/logger"
	"hotgraph/internal/store"
)

var (
	// ErrNoGraph is returned when a nil graph is handed to New or Publish.
	ErrNoGraph = errors.New("livegraph: graph is required")
	// ErrClosed is returned by every call on a Handle after Close.
	ErrClosed = errors.New("livegraph: handle closed")
)

var _ store.Graph = (*Handle)(nil)

// generation is one published snapshot and the calls currently running on it.
type generation struct {
	graph    store.Graph
	id       dataset.Identity
	inflight sync.WaitGroup
}

// Handle forwards every store.Graph call to the snapshot active when the call
// starts. The lock covers only the read of the active generation.
type Handle struct {
	mu     sync.RWMutex
	active *generation
	closed bool

	drainTimeout time.Duration
	log          *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithDrainTimeout bounds how long a superseded snapshot waits for running calls
// before it is closed. Zero or less waits until the release context is done.
func WithDrainTimeout(d time.Duration) HandleOption {
	return func(h *Handle) { h.drainTimeout = d }
}

// WithLogger sets the logger used for release events.
func WithLogger(l *zap.SugaredLogger) HandleOption {
	return func(h *Handle) {
		if l != nil {
			h.log = l
		}
	}
}

// New returns a Handle serving graph. A handle always has a usable graph, so
// graph must not be nil.
func New(graph store.Graph, id dataset.Identity, opts ...HandleOption) (*Handle, error) {
	if graph == nil {
		return nil, ErrNoGraph
	}
	h := &Handle{
		active:       &generation{graph: graph, id: id},
		drainTimeout: 30 * time.Second,
		log:          logger.Named("livegraph"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Current returns the identity of the active snapshot.
func (h *Handle) Current() dataset.Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active.id
}

// Publish makes graph the active snapshot. Calls starting after Publish returns
// see graph; calls already running finish on the previous snapshot, which is
// returned for the caller to release.
func (h *Handle) Publish(graph store.Graph, id dataset.Identity) (*Retired, error) {
	if graph == nil {
		return nil, ErrNoGraph
	}
	next := &generation{graph: graph, id: id}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	prev := h.active
	h.active = next
	h.mu.Unlock()

	return &Retired{gen: prev, drainTimeout: h.drainTimeout, log: h.log}, nil
}

// Close releases the active snapshot after the calls running on it finish,
// bounded by the drain timeout. Later calls and publishes fail with ErrClosed.
func (h *Handle) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		active := h.active
		h.mu.Unlock()
		r := &Retired{gen: active, drainTimeout: h.drainTimeout, log: h.log}
		h.closeErr = r.Release(ctx)
	})
	return h.closeErr
}

// Pin holds the active snapshot for a sequence of calls that must all see the
// same version. The snapshot is not closed until release is called; release
// is safe to call more than once.
func (h *Handle) Pin() (graph store.Graph, id dataset.Identity, release func(), err error) {
	g, err := h.acquire()
	if err != nil {
		return nil, "", nil, err
	}
	var once sync.Once
	return g.graph, g.id, func() { once.Do(g.inflight.Done) }, nil
}

// acquire returns the active generation with a lease taken on it. The caller
// must call inflight.Done when the forwarded call returns. Leases are only
// taken under the read lock while the handle is open, so no lease is added
// once Close has started waiting.
func (h *Handle) acquire() (*generation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrClosed
	}
	g := h.active
	g.inflight.Add(1)
	return g, nil
}

func (h *Handle) GetEntity(ctx context.Context, name, entityType string) (*store.Entity, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.GetEntity(ctx, name, entityType)
}

func (h *Handle) GetRelationships(ctx context.Context, name, relType, direction string, depth int) ([]store.Relationship, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.GetRelationships(ctx, name, relType, direction, depth)
}

func (h *Handle) ListEntities(ctx context.Context, entityType, layer, tag string) ([]store.EntitySummary, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.ListEntities(ctx, entityType, layer, tag)
}

func (h *Handle) ListEntitiesWithProperties(ctx context.Context) ([]store.Entity, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.ListEntitiesWithProperties(ctx)
}

func (h *Handle) Search(ctx context.Context, query, layer, entityType string) ([]store.SearchResult, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.Search(ctx, query, layer, entityType)
}

func (h *Handle) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.RunSQL(ctx, query, params)
}

func (h *Handle) ListDanglingPlaceholders(ctx context.Context) ([]store.EntitySummary, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.ListDanglingPlaceholders(ctx)
}

func (h *Handle) ListOrphanedEntities(ctx context.Context) ([]store.EntitySummary, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.ListOrphanedEntities(ctx)
}

func (h *Handle) ListDuplicateNames(ctx context.Context) ([]store.EntitySummary, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.ListDuplicateNames(ctx)
}

func (h *Handle) Info(ctx context.Context) (*store.SnapshotInfo, error) {
	g, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer g.inflight.Done()
	return g.graph.Info(ctx)
}

// Retired is a snapshot superseded by Publish.
type Retired struct {
	gen          *generation
	drainTimeout time.Duration
	log          *zap.SugaredLogger

	once    sync.Once
	err     error
	drained bool
}

// Identity returns the identity of the superseded snapshot.
func (r *Retired) Identity() dataset.Identity { return r.gen.id }

// Release waits for calls running on the snapshot to finish, bounded by the drain
// timeout and ctx, then closes it. Only the first call has an effect. Errors are
// marked dataset.ErrRelease.
func (r *Retired) Release(ctx context.Context) error {
	r.once.Do(func() {
		r.drained = r.drain(ctx)
		if !r.drained {
			r.log.Warnw("Closing snapshot with calls still running",
				"snapshot", r.gen.id,
				"drain_timeout", r.drainTimeout)
		}
		r.err = dataset.ReleaseError(r.gen.id, r.gen.graph.Close(ctx))
	})
	return r.err
}

// Drained reports whether every running call had finished when the snapshot was
// closed. It is only meaningful after Release.
func (r *Retired) Drained() bool { return r.drained }

func (r *Retired) drain(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		r.gen.inflight.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if r.drainTimeout > 0 {
		timer := time.NewTimer(r.drainTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
		return true
	case <-timeout:
		return false
	case <-ctx.Done():
		return false
	}
}
