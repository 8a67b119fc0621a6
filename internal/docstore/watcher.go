package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/hmiyata/cascade/internal/logging"
)

// Watcher ingests text files dropped into a sources directory. Only .txt and
// .md files are picked up; everything else is ignored.
type Watcher struct {
	dir     string
	store   *Store
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching dir, ingesting files that already exist there
// before returning.
func NewWatcher(dir string, store *Store, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ensure sources dir %s: %w", dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		store:   store,
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}

	w.ingestExisting()
	go w.loop()
	return w, nil
}

func (w *Watcher) ingestExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warnf("read sources dir %s: %v", w.dir, err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.ingest(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debugf("fsnotify event=%s file=%s", event.Op, event.Name)
				w.ingest(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("fsnotify error=%v", err)
		}
	}
}

func (w *Watcher) ingest(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != ".md" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warnf("read source file %s: %v", path, err)
		return
	}

	name := filepath.Base(path)
	w.store.Add(name, strings.TrimPrefix(ext, "."), string(data))
	w.logger.Infof("ingested source file %s (%d bytes)", name, len(data))
}

// Close stops the watch loop.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
