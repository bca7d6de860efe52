package lsp

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// watchDebounce coalesces bursts of file events, such as a branch
// checkout, into one rescan.
const watchDebounce = 300 * time.Millisecond

// watchTemplates rescans the templates folder when files below it change
// outside the editor, then republishes diagnostics of open documents when
// conn is set. It returns when ctx is done.
func (s *Server) watchTemplates(ctx context.Context, conn *jsonrpc2.Conn, debounce time.Duration) error {
	index := s.templates.Load()
	if index == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify does not recurse; every folder is added on its own
	if err := addDirs(watcher, index.Root); err != nil {
		return fmt.Errorf("watch %s: %w", index.Root, err)
	}
	s.logger.Debug("watching templates", zap.String("dir", index.Root))

	timer := time.NewTimer(0)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addDirs(watcher, event.Name); err != nil {
						s.logger.Warn("watch folder failed", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.logger.Debug("template changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("template watcher error", zap.Error(err))

		case <-timer.C:
			s.scanTemplates(ctx)
			if conn != nil {
				for _, doc := range s.docs.URIs() {
					s.publishDiagnostics(ctx, conn, doc)
				}
			}
		}
	}
}

// addDirs adds root and every non-hidden folder below it to watcher.
func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
