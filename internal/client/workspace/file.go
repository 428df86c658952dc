package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads the active workspace id from a file and follows edits to it,
// so that several client processes on one machine share the selection.
type FileSource struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	subs    watchers
	path    string
	current string
	mu      sync.RWMutex
	once    sync.Once
}

// NewFileSource starts watching path. A missing file means no workspace selected.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// следим за каталогом: редакторы заменяют файл через rename
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	f := &FileSource{
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
		path:    path,
	}
	current, err := f.read()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f.current = current

	go f.loop()
	return f, nil
}

func (f *FileSource) Current() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

func (f *FileSource) Watch(fn func(string)) func() {
	return f.subs.add(fn)
}

// Set writes workspace to the file; watchers are notified by the file event.
func (f *FileSource) Set(workspace string) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(workspace+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write workspace file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace workspace file: %w", err)
	}
	return nil
}

// Close stops watching.
func (f *FileSource) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.watcher.Close()
	})
	return err
}

func (f *FileSource) read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read workspace file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileSource) loop() {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.reload()
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("Workspace file watcher error", "path", f.path, "error", err)
		}
	}
}

func (f *FileSource) reload() {
	next, err := f.read()
	if err != nil {
		f.logger.Warn("Failed to reload workspace file", "path", f.path, "error", err)
		return
	}

	f.mu.Lock()
	changed := next != f.current
	f.current = next
	f.mu.Unlock()

	if changed {
		f.logger.Info("Active workspace changed", "workspace", next)
		f.subs.notify(next)
	}
}
