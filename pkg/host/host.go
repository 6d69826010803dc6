// Package host defines the narrow contract FlowCanvas requires from its
// embedding application.
//
// The panels never touch the file system or any global state directly: file
// reads and writes, the file-tree slice, and cross-panel notifications all
// arrive through the [Context] and [Events] interfaces. The host framework
// implements them in production; [github.com/flowcanvas/flowcanvas/pkg/host/local]
// provides a filesystem-backed implementation for the CLI and tests.
package host

import (
	"context"

	"github.com/flowcanvas/flowcanvas/pkg/discovery"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// SliceFileTree is the name of the lazily-populated data slice carrying the
// repository file list.
const SliceFileTree = "fileTree"

// Event topics the panels subscribe to.
const (
	// TopicDataRefresh is published when host data (the file tree) changed
	// and panels should re-scan.
	TopicDataRefresh = "data:refresh"
	// TopicSelectConfig asks the graph panel to select a configuration by
	// its discovery ID.
	TopicSelectConfig = "panel:select-config"
	// TopicLoadTrace asks the graph panel to load a trace document by path.
	TopicLoadTrace = "panel:load-trace"
)

// Slice is a named, lazily-populated data source exposed by the host.
type Slice struct {
	Loading bool
	Err     error

	// AllFiles is populated for the fileTree slice.
	AllFiles []discovery.FileRecord
}

// Context is the capability surface the host hands to a panel.
//
// A missing capability is an integration error, not an environmental one:
// implementations and callers surface it as MISSING_CAPABILITY and fail
// loudly instead of degrading silently.
type Context interface {
	// HasSlice reports whether the named slice exists at all.
	HasSlice(name string) bool
	// IsSliceLoading reports whether the named slice is still populating.
	IsSliceLoading(name string) bool
	// GetSlice returns the current snapshot of the named slice.
	GetSlice(name string) (Slice, error)

	// ReadFile returns the content of an absolute path.
	ReadFile(ctx context.Context, absPath string) (string, error)
	// WriteFile persists content to an absolute path.
	WriteFile(ctx context.Context, absPath string, content string) error

	// RepositoryPath is the root joined against relative config paths.
	RepositoryPath() string
}

// Handler receives event payloads. Payload shape depends on the topic.
type Handler func(payload any)

// Events is the host's cross-panel notification bus. Subscribe returns a
// disposer; a torn-down panel must call it so no handler fires after unmount.
type Events interface {
	Subscribe(topic string, h Handler) (unsubscribe func())
	Publish(topic string, payload any)
}

// RequireCapabilities verifies that the host context provides everything the
// graph panels need. It returns a MISSING_CAPABILITY error naming the first
// gap found.
func RequireCapabilities(hc Context) error {
	if hc == nil {
		return errors.New(errors.ErrCodeMissingCapability, "host context not provided")
	}
	if hc.RepositoryPath() == "" {
		return errors.New(errors.ErrCodeMissingCapability, "host did not provide repositoryPath")
	}
	if !hc.HasSlice(SliceFileTree) {
		return errors.New(errors.ErrCodeMissingCapability, "host did not provide the %s slice", SliceFileTree)
	}
	return nil
}
