package inbox

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/logging"
)

// DefaultSettle is how long a file must stay unchanged before it is read.
const DefaultSettle = 250 * time.Millisecond

// minTick bounds how often pending files are checked.
const minTick = time.Millisecond

// Handler receives each document read by a Watcher. A returned error is
// logged and does not stop the watcher.
type Handler func(ctx context.Context, doc deal.RawDocument) error

// Watcher reads files as they are created or rewritten in a directory and
// hands them to a Handler one at a time.
type Watcher struct {
	dir     string
	settle  time.Duration
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettle sets the quiet period before a changed file is read.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher starts watching dir. Call Run to process events and Close to
// release the watch.
func NewWatcher(dir string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.NewInvalidRequest("cannot watch " + dir + ": " + err.Error())
	}

	w := &Watcher{
		dir:     dir,
		settle:  DefaultSettle,
		logger:  zap.NewNop(),
		watcher: fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close stops the underlying watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run dispatches settled files to handle until ctx is done or the watch is
// closed. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.settle/2, minTick))
	defer ticker.Stop()

	w.logger.Info("watching inbox", zap.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", zap.Error(err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.dispatch(ctx, path, handle)
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)
	return !strings.HasPrefix(name, ".") && Supported(name)
}

func (w *Watcher) dispatch(ctx context.Context, path string, handle Handler) {
	doc, err := ReadFile(path)
	if err != nil {
		w.logger.Warn("inbox file skipped", zap.String("path", path), logging.ErrorCode(err), zap.Error(err))
		return
	}
	if err := handle(ctx, doc); err != nil {
		w.logger.Warn("inbox document failed",
			zap.String("path", path),
			zap.String(logging.FieldSourceID, doc.SourceID),
			logging.ErrorCode(err), zap.Error(err))
	}
}
