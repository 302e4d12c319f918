package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"imgshrink/internal/compressor"
	"imgshrink/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a path must stay quiet before it is compressed.
const DefaultDebounce = 500 * time.Millisecond

// ErrDestinationIsWatched is returned when output would land in the watched
// directory and retrigger the watcher.
var ErrDestinationIsWatched = errors.New("destination directory is the watched directory")

// Event reports one compressed (or failed) file.
type Event struct {
	Source string
	Output string
	Err    error
}

// Settings controls which files are picked up and how events are delivered.
type Settings struct {
	Extensions []string
	Debounce   time.Duration
	// Handler receives every Event. It runs on the compression goroutine.
	Handler func(Event)
}

// Watcher compresses images as they appear in a directory.
type Watcher struct {
	dir      string
	comp     *compressor.Compressor
	opts     *compressor.Options
	exts     map[string]struct{}
	debounce time.Duration
	handler  func(Event)
	log      logrus.FieldLogger
	fs       *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New creates a watcher for dir. Output keeps each source's base name with
// the configured format's extension.
func New(dir string, comp *compressor.Compressor, opts *compressor.Options, s Settings, log logrus.FieldLogger) (*Watcher, error) {
	if comp == nil {
		comp = compressor.Default()
	}
	if opts == nil {
		opts = compressor.DefaultOptions()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	same, err := sameDir(dir, opts.DestinationDir())
	if err != nil {
		return nil, err
	}
	if same {
		return nil, fmt.Errorf("%w: %s", ErrDestinationIsWatched, dir)
	}

	exts := make(map[string]struct{}, len(s.Extensions))
	for _, e := range s.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	debounce := s.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		comp:     comp,
		opts:     opts,
		exts:     exts,
		debounce: debounce,
		handler:  s.Handler,
		log:      log.WithField("watch_dir", dir),
		fs:       fsWatcher,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is done, then waits for in-flight compressions and
// releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer w.shutdown()

	if err := w.fs.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.dir, err)
	}
	w.log.Info("Watching folder")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Close releases the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if base == "" || base[0] == '.' {
		return false
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(base))]
	return ok
}

// schedule restarts path's quiet period.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.compress(path)
	})
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) compress(path string) {
	log := logger.WithFileOperation(w.log, path, "watch")
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	ev := Event{Source: path}
	opts, err := w.opts.Builder().FileName(stem + "." + w.opts.Format().Extension()).Build()
	if err == nil {
		ev.Output, err = w.comp.CompressToFile(path, opts)
	}
	if err != nil {
		ev.Err = err
		log.WithError(err).Warn("Failed to compress watched file")
	} else {
		log.WithField("destination", ev.Output).Info("Compressed watched file")
	}

	if w.handler != nil {
		w.handler(ev)
	}
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return filepath.Clean(absA) == filepath.Clean(absB), nil
}
