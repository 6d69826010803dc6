// Package local implements the host contract on top of the local filesystem.
//
// It exists for the CLI and for tests: the repository root is walked once to
// populate the fileTree slice, reads and writes go straight to disk, and an
// in-memory [host.Bus] serves as the event channel. Refresh re-walks the tree
// and publishes data:refresh, mimicking the host's file-watcher behavior.
package local

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flowcanvas/flowcanvas/pkg/discovery"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/host"
)

// Directories never worth walking into.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// Host is a filesystem-backed host context and event bus.
type Host struct {
	root string
	bus  *host.Bus

	mu    sync.RWMutex
	slice host.Slice
}

// New creates a host rooted at the given repository path and performs the
// initial file-tree walk.
func New(root string) (*Host, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve repository path %s", root)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "repository path %s is not a directory", abs)
	}

	h := &Host{root: abs, bus: host.NewBus()}
	if err := h.walk(); err != nil {
		return nil, err
	}
	return h, nil
}

// Events returns the host's event bus.
func (h *Host) Events() host.Events { return h.bus }

// Refresh re-walks the repository and publishes data:refresh.
func (h *Host) Refresh() error {
	if err := h.walk(); err != nil {
		return err
	}
	h.bus.Publish(host.TopicDataRefresh, nil)
	return nil
}

func (h *Host) walk() error {
	var files []discovery.FileRecord
	err := filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(h.root, path)
		if err != nil {
			return err
		}
		files = append(files, discovery.FileRecord{
			Path:         path,
			RelativePath: filepath.ToSlash(rel),
			Name:         d.Name(),
		})
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "walk repository %s", h.root)
	}

	h.mu.Lock()
	h.slice = host.Slice{AllFiles: files}
	h.mu.Unlock()
	return nil
}

// HasSlice reports whether the named slice is available.
func (h *Host) HasSlice(name string) bool { return name == host.SliceFileTree }

// IsSliceLoading always reports false: the local walk is synchronous.
func (h *Host) IsSliceLoading(name string) bool { return false }

// GetSlice returns the current file tree snapshot.
func (h *Host) GetSlice(name string) (host.Slice, error) {
	if name != host.SliceFileTree {
		return host.Slice{}, errors.New(errors.ErrCodeMissingCapability, "unknown slice %q", name)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.slice, nil
}

// ReadFile reads an absolute path inside the repository.
func (h *Host) ReadFile(ctx context.Context, absPath string) (string, error) {
	if err := h.checkPath(absPath); err != nil {
		return "", err
	}
	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", absPath)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "read %s", absPath)
	}
	return string(data), nil
}

// WriteFile persists content to an absolute path inside the repository.
func (h *Host) WriteFile(ctx context.Context, absPath string, content string) error {
	if err := h.checkPath(absPath); err != nil {
		return err
	}
	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "write %s", absPath)
	}
	return nil
}

// RepositoryPath returns the absolute repository root.
func (h *Host) RepositoryPath() string { return h.root }

// checkPath rejects paths escaping the repository root.
func (h *Host) checkPath(absPath string) error {
	rel, err := filepath.Rel(h.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New(errors.ErrCodeInvalidPath, "path %s escapes repository %s", absPath, h.root)
	}
	return nil
}

var _ host.Context = (*Host)(nil)
