package livegraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotgraph/internal/dataset"
	"hotgraph/internal/store"
	"hotgraph/internal/store/storetest"
)

func TestNewRequiresGraph(t *testing.T) {
	_, err := New(nil, "v1")
	assert.ErrorIs(t, err, ErrNoGraph)

	h, err := New(storetest.New("v1", "Mara"), "v1")
	require.NoError(t, err)
	_, err = h.Publish(nil, "v2")
	assert.ErrorIs(t, err, ErrNoGraph)
	assert.Equal(t, dataset.Identity("v1"), h.Current())
}

func TestHandleForwardsToActiveGraph(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	v1.Placeholders = []store.EntitySummary{{Name: "Guild"}}
	h, err := New(v1, "v1")
	require.NoError(t, err)

	entity, err := h.GetEntity(ctx, "mara", "")
	require.NoError(t, err)
	assert.Equal(t, "v1", entity.Properties["version"])

	list, err := h.ListEntities(ctx, "npc", "", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	all, err := h.ListEntitiesWithProperties(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	results, err := h.Search(ctx, "mar", "", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].Snippet)

	rows, err := h.RunSQL(ctx, "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", rows[0]["version"])

	rels, err := h.GetRelationships(ctx, "Mara", "", "both", 1)
	require.NoError(t, err)
	assert.Empty(t, rels)

	dangling, err := h.ListDanglingPlaceholders(ctx)
	require.NoError(t, err)
	assert.Len(t, dangling, 1)
	_, err = h.ListOrphanedEntities(ctx)
	require.NoError(t, err)
	_, err = h.ListDuplicateNames(ctx)
	require.NoError(t, err)

	info, err := h.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", info.Project)

	v2 := storetest.New("v2", "Mara")
	retired, err := h.Publish(v2, "v2")
	require.NoError(t, err)
	assert.Equal(t, dataset.Identity("v1"), retired.Identity())
	assert.Equal(t, dataset.Identity("v2"), h.Current())

	entity, err = h.GetEntity(ctx, "mara", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", entity.Properties["version"], "calls after Publish see the new graph")
	assert.Equal(t, 0, v1.Closes(), "Publish does not close the old graph")
}

func TestPublishNoTornReads(t *testing.T) {
	ctx := context.Background()
	const versions = 20

	graphs := make([]*storetest.Graph, versions)
	valid := make(map[string]bool, versions)
	for i := range graphs {
		version := fmt.Sprintf("v%d", i)
		graphs[i] = storetest.New(version, "Mara")
		valid[version] = true
	}

	h, err := New(graphs[0], "v0", WithDrainTimeout(time.Second))
	require.NoError(t, err)

	stop := make(chan struct{})
	var failures atomic.Int32
	var calls atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				entity, err := h.GetEntity(ctx, "Mara", "")
				if err != nil || entity == nil || !valid[fmt.Sprint(entity.Properties["version"])] {
					failures.Add(1)
				}
				rows, err := h.RunSQL(ctx, "SELECT 1", nil)
				if err != nil || !valid[fmt.Sprint(rows[0]["version"])] {
					failures.Add(1)
				}
				calls.Add(1)
			}
		}()
	}

	for i := 1; i < versions; i++ {
		retired, err := h.Publish(graphs[i], dataset.Identity(graphs[i].Version))
		require.NoError(t, err)
		require.NoError(t, retired.Release(ctx))
		require.Equal(t, dataset.Identity(graphs[i].Version), h.Current())
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, failures.Load(), "every call must see one complete, open graph")
	assert.Positive(t, calls.Load())
	for _, g := range graphs[:versions-1] {
		assert.Equal(t, 1, g.Closes())
	}
	assert.Zero(t, graphs[versions-1].Closes())
}

func TestReleaseWaitsForInflightCalls(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	v1.Gate = make(chan struct{})
	v1.Entered = make(chan struct{}, 1)

	h, err := New(v1, "v1", WithDrainTimeout(5*time.Second))
	require.NoError(t, err)

	type result struct {
		entity *store.Entity
		err    error
	}
	done := make(chan result, 1)
	go func() {
		e, err := h.GetEntity(ctx, "Mara", "")
		done <- result{e, err}
	}()
	<-v1.Entered

	retired, err := h.Publish(storetest.New("v2", "Mara"), "v2")
	require.NoError(t, err)

	released := make(chan error, 1)
	go func() { released <- retired.Release(ctx) }()

	assert.Never(t, v1.IsClosed, 50*time.Millisecond, 5*time.Millisecond, "old graph closed under a running call")

	close(v1.Gate)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "v1", r.entity.Properties["version"])

	require.NoError(t, <-released)
	assert.True(t, retired.Drained())
	assert.Equal(t, 1, v1.Closes())
}

func TestReleaseDrainTimeout(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	v1.Gate = make(chan struct{})
	v1.Entered = make(chan struct{}, 1)

	h, err := New(v1, "v1", WithDrainTimeout(20*time.Millisecond))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.GetEntity(ctx, "Mara", "")
		done <- err
	}()
	<-v1.Entered

	retired, err := h.Publish(storetest.New("v2", "Mara"), "v2")
	require.NoError(t, err)

	require.NoError(t, retired.Release(ctx))
	assert.False(t, retired.Drained())
	assert.Equal(t, 1, v1.Closes())

	close(v1.Gate)
	assert.ErrorIs(t, <-done, storetest.ErrClosed, "the straggler sees its own graph's error")
}

func TestReleaseIsIdempotentAndMarked(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1")
	v1.CloseErr = errors.New("disk gone")

	h, err := New(v1, "v1")
	require.NoError(t, err)
	retired, err := h.Publish(storetest.New("v2"), "v2")
	require.NoError(t, err)

	err = retired.Release(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrRelease))
	assert.ErrorContains(t, err, "disk gone")

	assert.Equal(t, err, retired.Release(ctx))
	assert.Equal(t, 1, v1.Closes())
}

func TestReleaseStopsWaitingWhenContextDone(t *testing.T) {
	v1 := storetest.New("v1", "Mara")
	v1.Gate = make(chan struct{})
	v1.Entered = make(chan struct{}, 1)
	defer close(v1.Gate)

	h, err := New(v1, "v1", WithDrainTimeout(0))
	require.NoError(t, err)
	go h.GetEntity(context.Background(), "Mara", "")
	<-v1.Entered

	retired, err := h.Publish(storetest.New("v2"), "v2")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, retired.Release(ctx))
	assert.False(t, retired.Drained())
	assert.True(t, v1.IsClosed())
}

func TestHandleClose(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	h, err := New(v1, "v1")
	require.NoError(t, err)

	require.NoError(t, h.Close(ctx))
	require.NoError(t, h.Close(ctx))
	assert.Equal(t, 1, v1.Closes())

	_, err = h.GetEntity(ctx, "Mara", "")
	assert.ErrorIs(t, err, ErrClosed)
	_, _, _, err = h.Pin()
	assert.ErrorIs(t, err, ErrClosed)

	v2 := storetest.New("v2", "Mara")
	_, err = h.Publish(v2, "v2")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, v2.Closes(), "the caller still owns a graph that was not published")
}

func TestCloseWaitsForRunningCallsAndRefusesNewOnes(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	v1.Gate = make(chan struct{})
	v1.Entered = make(chan struct{}, 1)
	h, err := New(v1, "v1", WithDrainTimeout(time.Minute))
	require.NoError(t, err)

	running := make(chan error, 1)
	go func() {
		_, err := h.GetEntity(ctx, "Mara", "")
		running <- err
	}()
	<-v1.Entered

	closed := make(chan error, 1)
	go func() { closed <- h.Close(ctx) }()

	require.Eventually(t, func() bool {
		_, err := h.Info(ctx)
		return errors.Is(err, ErrClosed)
	}, time.Second, time.Millisecond, "new calls are refused once Close starts")
	assert.False(t, v1.IsClosed(), "graph closed under a running call")

	close(v1.Gate)
	require.NoError(t, <-running)
	require.NoError(t, <-closed)
	assert.True(t, v1.IsClosed())
}

func TestPinHoldsOneSnapshotAcrossPublish(t *testing.T) {
	ctx := context.Background()
	v1 := storetest.New("v1", "Mara")
	h, err := New(v1, "v1", WithDrainTimeout(time.Minute))
	require.NoError(t, err)
	defer h.Close(ctx)

	pinned, id, release, err := h.Pin()
	require.NoError(t, err)
	assert.Equal(t, dataset.Identity("v1"), id)

	retired, err := h.Publish(storetest.New("v2", "Mara"), "v2")
	require.NoError(t, err)
	released := make(chan error, 1)
	go func() { released <- retired.Release(ctx) }()

	assert.Equal(t, dataset.Identity("v2"), h.Current())
	info, err := pinned.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", info.Project, "a pinned graph keeps answering from its own snapshot")
	assert.Never(t, v1.IsClosed, 50*time.Millisecond, 5*time.Millisecond)

	release()
	release()
	require.NoError(t, <-released)
	assert.True(t, retired.Drained())
	assert.True(t, v1.IsClosed())
}
