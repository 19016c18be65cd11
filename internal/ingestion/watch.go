package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/54b3r/kbrag-go/internal/logging"
)

// FileAdder ingests one file. *Pipeline satisfies it.
type FileAdder interface {
	AddFile(ctx context.Context, path string) (int, error)
}

// DefaultSettle is how long a file must go without events before it is added.
const DefaultSettle = 500 * time.Millisecond

// Watcher adds files to the knowledge base as they are created or written
// in a directory. The directory is not watched recursively.
//
// Events are debounced per path: a file is added once, Settle after its
// last create or write event, so an editor or copy that writes in several
// parts produces a single add.
type Watcher struct {
	dir   string
	adder FileAdder

	// Settle is the quiet period per path. Values <= 0 use DefaultSettle.
	Settle time.Duration
}

// NewWatcher returns a Watcher over dir.
func NewWatcher(dir string, adder FileAdder) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingestion: watch %s: not a directory", dir)
	}
	return &Watcher{dir: dir, adder: adder, Settle: DefaultSettle}, nil
}

// Run watches until ctx is cancelled. Ingestion failures are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingestion: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("ingestion: watch %s: %w", w.dir, err)
	}
	log.Info("ingestion: watching", slog.String("dir", w.dir))

	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	// pending holds the latest timer per path with unsettled events. A timer
	// that fired before being replaced carries a stale gen and is ignored.
	// Adds run on this goroutine.
	type settled struct {
		path string
		gen  uint64
	}
	type timer struct {
		t   *time.Timer
		gen uint64
	}
	pending := make(map[string]timer)
	ready := make(chan settled)
	var gen uint64
	defer func() {
		for _, p := range pending {
			p.t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !shouldIngest(event) {
				continue
			}
			path := event.Name
			if p, ok := pending[path]; ok {
				p.t.Stop()
			}
			gen++
			msg := settled{path: path, gen: gen}
			pending[path] = timer{gen: gen, t: time.AfterFunc(settle, func() {
				select {
				case ready <- msg:
				case <-ctx.Done():
				}
			})}
		case msg := <-ready:
			if p, ok := pending[msg.path]; !ok || p.gen != msg.gen {
				continue
			}
			delete(pending, msg.path)
			w.handle(ctx, msg.path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error("ingestion: watcher error", slog.String("error", err.Error()))
		}
	}
}

// handle adds path once its events have settled. The file may have been
// removed or renamed in the meantime.
func (w *Watcher) handle(ctx context.Context, path string) {
	log := logging.FromContext(ctx)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		log.Debug("ingestion: settled file gone", slog.String("path", path))
		return
	}
	n, err := w.adder.AddFile(ctx, path)
	if err != nil {
		log.Error("ingestion: add failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("ingestion: file added", slog.String("path", path), slog.Int("chunks", n))
}

// shouldIngest accepts create and write events for visible regular files
// with a supported extension. Removes, renames and chmods are ignored.
func shouldIngest(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if !Supported(event.Name) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.Mode().IsRegular()
}
