package livegraph

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"hotgraph/internal/config"
	"hotgraph/internal/dataset"
	"hotgraph/internal/logger"
)

// Options configures Open.
type Options struct {
	// Path is a single snapshot file, served as is, or a dataset directory with
	// a pointer file, served live.
	Path         string
	Mode         dataset.Mode
	Interval     time.Duration
	DrainTimeout time.Duration
	// Watch wakes the watcher on pointer file events in addition to polling.
	Watch bool

	// Loader defaults to dataset.Default.
	Loader dataset.Loader
	Logger *zap.SugaredLogger
}

// OptionsFromConfig maps the dataset section of a project config to Options.
func OptionsFromConfig(cfg config.DatasetConfig) Options {
	return Options{
		Path:         cfg.Path,
		Mode:         dataset.ModeFor(cfg.InMemory),
		Interval:     cfg.PollInterval,
		DrainTimeout: cfg.DrainTimeout,
		Watch:        cfg.WatchEnabled(),
	}
}

func (o *Options) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = config.DefaultPollInterval
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = config.DefaultDrainTimeout
	}
	if o.Loader == nil {
		o.Loader = dataset.Default
	}
	if o.Logger == nil {
		o.Logger = logger.Named("livegraph")
	}
}

// Open loads the snapshot at opts.Path and returns a Handle serving it.
//
// For a directory the pointer file is resolved and the snapshot it names is
// loaded before Open returns; a missing pointer, a missing target or a load
// failure is returned as an error and no Handle is created. The returned Watcher
// keeps the Handle current once Run is started. For a single file the Watcher is
// nil.
func Open(ctx context.Context, opts Options) (*Handle, *Watcher, error) {
	opts.setDefaults()
	log := opts.Logger

	fi, err := os.Stat(opts.Path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening dataset %s", opts.Path)
	}

	var id dataset.Identity
	if fi.IsDir() {
		id, err = dataset.Resolve(opts.Path)
	} else {
		id, err = dataset.IdentityOf(opts.Path)
	}
	if err != nil {
		log.Errorw("Initial snapshot unavailable", "path", opts.Path, "error", err)
		return nil, nil, err
	}

	started := time.Now()
	graph, err := opts.Loader.Load(ctx, id.Path(), opts.Mode)
	if err == nil && graph == nil {
		err = dataset.LoadError(id.Path(), ErrNoGraph)
	}
	if err != nil {
		log.Errorw("Initial snapshot load failed", "snapshot", id, "error", err)
		return nil, nil, err
	}

	handle, err := New(graph, id, WithDrainTimeout(opts.DrainTimeout), WithLogger(log))
	if err != nil {
		graph.Close(ctx)
		return nil, nil, err
	}
	log.Infow("Initial snapshot loaded",
		"snapshot", id,
		"mode", opts.Mode,
		"load_time", time.Since(started))

	if !fi.IsDir() {
		return handle, nil, nil
	}

	w := &Watcher{
		handle:   handle,
		dir:      opts.Path,
		mode:     opts.Mode,
		loader:   opts.Loader,
		interval: opts.Interval,
		watch:    opts.Watch,
		debounce: defaultWakeDebounce,
		log:      log,
	}
	return handle, w, nil
}
