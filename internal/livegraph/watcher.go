package livegraph

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"hotgraph/internal/dataset"
)

// Outcome is the result of one reload cycle.
type Outcome int

const (
	Unchanged Outcome = iota
	Swapped
	PointerMissing
	TargetMissing
	LoadFailed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Swapped:
		return "swapped"
	case PointerMissing:
		return "pointer-missing"
	case TargetMissing:
		return "target-missing"
	case LoadFailed:
		return "load-failed"
	default:
		return "unknown"
	}
}

// Stats summarizes the cycles a Watcher has run.
type Stats struct {
	Checks        uint64
	Swaps         uint64
	Failures      uint64
	ReleaseErrors uint64
	LastOutcome   Outcome
	LastCheck     time.Time
	LastSwap      time.Time
	// LastError is the most recent cycle or release error. Successful cycles do
	// not clear it.
	LastError error
}

const defaultWakeDebounce = 250 * time.Millisecond

// Watcher keeps a Handle on the snapshot named by a dataset directory's pointer.
type Watcher struct {
	handle   *Handle
	dir      string
	mode     dataset.Mode
	loader   dataset.Loader
	interval time.Duration
	watch    bool
	debounce time.Duration
	log      *zap.SugaredLogger

	// cycle serializes Check so Run and manual checks never load concurrently.
	cycle sync.Mutex

	mu    sync.Mutex
	stats Stats
}

// Dir returns the dataset directory being watched.
func (w *Watcher) Dir() string { return w.dir }

// Stats returns a copy of the cycle counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Check runs one reload cycle. Errors are recorded and logged, never returned;
// a panic inside the cycle is recovered and counted as LoadFailed.
func (w *Watcher) Check(ctx context.Context) (outcome Outcome) {
	w.cycle.Lock()
	defer w.cycle.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("reload cycle panicked: %v", r)
			w.log.Errorw("Reload cycle panicked", "dir", w.dir, "panic", r)
			w.record(LoadFailed, err)
			outcome = LoadFailed
		}
	}()

	id, err := dataset.Resolve(w.dir)
	if err != nil {
		outcome = PointerMissing
		if errors.Is(err, dataset.ErrTargetMissing) {
			outcome = TargetMissing
		}
		w.log.Warnw("Cannot resolve dataset pointer, keeping current snapshot",
			"dir", w.dir,
			"outcome", outcome,
			"current", w.handle.Current(),
			"error", err)
		w.record(outcome, err)
		return outcome
	}

	current := w.handle.Current()
	if id == current {
		w.log.Debugw("Dataset unchanged", "snapshot", id)
		w.record(Unchanged, nil)
		return Unchanged
	}

	w.log.Infow("Loading new snapshot", "snapshot", id, "previous", current, "mode", w.mode)
	started := time.Now()
	graph, err := w.loader.Load(ctx, id.Path(), w.mode)
	if err == nil && graph == nil {
		err = dataset.LoadError(id.Path(), ErrNoGraph)
	}
	if err != nil {
		w.log.Errorw("Snapshot load failed, keeping current snapshot",
			"snapshot", id,
			"current", current,
			"error", err)
		w.record(LoadFailed, err)
		return LoadFailed
	}

	retired, err := w.handle.Publish(graph, id)
	if err != nil {
		if cerr := graph.Close(ctx); cerr != nil {
			w.log.Warnw("Closing unpublished snapshot failed", "snapshot", id, "error", cerr)
		}
		w.log.Warnw("Snapshot not published", "snapshot", id, "error", err)
		w.record(LoadFailed, err)
		return LoadFailed
	}
	w.log.Infow("Snapshot swapped",
		"snapshot", id,
		"previous", retired.Identity(),
		"load_time", time.Since(started))
	w.record(Swapped, nil)

	if err := retired.Release(ctx); err != nil {
		w.log.Warnw("Releasing superseded snapshot failed", "snapshot", retired.Identity(), "error", err)
		w.recordRelease(err)
	} else {
		w.log.Debugw("Released superseded snapshot", "snapshot", retired.Identity(), "drained", retired.Drained())
	}
	return Swapped
}

// Run checks the pointer, then sleeps for the interval, until ctx is cancelled.
// With watching enabled, a change to the pointer file ends the sleep early.
func (w *Watcher) Run(ctx context.Context) {
	wake, stop := w.watchPointer(ctx)
	defer stop()

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	w.log.Infow("Watching dataset", "dir", w.dir, "interval", w.interval, "fs_events", wake != nil)
	for {
		w.Check(ctx)
		timer.Reset(w.interval)

		select {
		case <-ctx.Done():
			w.log.Infow("Stopped watching dataset", "dir", w.dir)
			return
		case <-timer.C:
		case <-wake:
		}
	}
}

// watchPointer delivers a debounced signal whenever the pointer file is created,
// written, renamed or removed. It returns a nil channel if events are disabled or
// unavailable, in which case Run relies on the timer alone.
func (w *Watcher) watchPointer(ctx context.Context) (<-chan struct{}, func()) {
	if !w.watch {
		return nil, func() {}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warnw("Filesystem events unavailable, polling only", "error", err)
		return nil, func() {}
	}
	// The pointer is replaced by rename, so the directory is watched rather than
	// the file itself.
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		w.log.Warnw("Cannot watch dataset directory, polling only", "dir", w.dir, "error", err)
		return nil, func() {}
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != dataset.PointerFile || event.Op == fsnotify.Chmod {
					continue
				}
				w.log.Debugw("Dataset pointer changed", "file", event.Name, "op", event.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(w.debounce, func() {
					select {
					case wake <- struct{}{}:
					default:
					}
				})
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.log.Warnw("Dataset watcher error", "error", err)
			}
		}
	}()

	return wake, func() {
		fw.Close()
		<-done
	}
}

func (w *Watcher) record(outcome Outcome, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.stats.Checks++
	w.stats.LastOutcome = outcome
	w.stats.LastCheck = now
	switch outcome {
	case Swapped:
		w.stats.Swaps++
		w.stats.LastSwap = now
	case PointerMissing, TargetMissing, LoadFailed:
		w.stats.Failures++
	}
	if err != nil {
		w.stats.LastError = err
	}
}

func (w *Watcher) recordRelease(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.ReleaseErrors++
	w.stats.LastError = err
}
