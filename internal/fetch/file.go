package fetch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource feeds exposition text from a file on disk: once on start and
// again on every write. It serves the file-loaded input path the same way
// the Controller serves the polled one.
type FileSource struct {
	path   string
	log    *slog.Logger
	onText func(timestamp int64, text string)
}

func NewFileSource(path string, log *slog.Logger, onText func(int64, string)) *FileSource {
	if log == nil {
		log = slog.Default()
	}
	return &FileSource{path: path, log: log, onText: onText}
}

// Watch loads the file if it exists, then watches its directory until the
// context is cancelled.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if _, err := os.Stat(f.path); err == nil {
		f.load()
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(f.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					f.load()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.log.Warn("file watcher error", "err", err)

			case <-ctx.Done():
				return
			}
		}
	}()

	return watcher.Add(filepath.Dir(f.path))
}

func (f *FileSource) load() {
	body, err := os.ReadFile(f.path)
	if err != nil {
		f.log.Warn("reading metrics file", "path", f.path, "err", err)
		return
	}
	f.onText(time.Now().UnixMilli(), string(body))
}
