package panel

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/discovery"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/host"
	"github.com/flowcanvas/flowcanvas/pkg/layout"
	"github.com/flowcanvas/flowcanvas/pkg/reconcile"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

const flowCanvas = `{
  "nodes": [
    {"id": "a", "x": 0, "y": 0},
    {"id": "b", "x": 10, "y": 10}
  ],
  "edges": [
    {"id": "e1", "fromNode": "a", "toNode": "b"}
  ],
  "pv": {"name": "Flow", "version": "1"}
}`

const flowConfig = `metadata:
  name: service-map
  version: "1"
nodeTypes:
  gateway: {}
  worker: {}
  archive: {}
allowedConnections:
  - from: gateway
    to: worker
  - from: worker
    to: archive
`

// testHost is an in-memory host.Context for controller tests.
type testHost struct {
	mu       sync.Mutex
	root     string
	loading  bool
	sliceErr error
	records  []discovery.FileRecord
	files    map[string]string
	writeErr error
	written  map[string]string
}

func newTestHost() *testHost {
	return &testHost{
		root:    "/repo",
		files:   map[string]string{},
		written: map[string]string{},
	}
}

func (h *testHost) addConfig(rel, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	abs := filepath.Join(h.root, rel)
	h.records = append(h.records, discovery.FileRecord{
		Path:         abs,
		RelativePath: rel,
		Name:         filepath.Base(rel),
	})
	h.files[abs] = content
}

func (h *testHost) HasSlice(name string) bool { return name == host.SliceFileTree }

func (h *testHost) IsSliceLoading(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

func (h *testHost) GetSlice(name string) (host.Slice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	records := make([]discovery.FileRecord, len(h.records))
	copy(records, h.records)
	return host.Slice{Err: h.sliceErr, AllFiles: records}, nil
}

func (h *testHost) ReadFile(ctx context.Context, absPath string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	content, ok := h.files[absPath]
	if !ok {
		return "", errors.New(errors.ErrCodeFileNotFound, "no such file: %s", absPath)
	}
	return content, nil
}

func (h *testHost) WriteFile(ctx context.Context, absPath string, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return h.writeErr
	}
	h.files[absPath] = content
	h.written[absPath] = content
	return nil
}

func (h *testHost) RepositoryPath() string { return h.root }

func newReadyPanel(t *testing.T, h *testHost, opts Options) *Panel {
	t.Helper()
	p, err := New(h, host.NewBus(), opts)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	require.NoError(t, p.Load(context.Background()))
	return p
}

func TestNewRequiresCapabilities(t *testing.T) {
	_, err := New(nil, host.NewBus(), Options{})
	assert.Equal(t, errors.ErrCodeMissingCapability, errors.GetCode(err))
}

func TestLoadWhileSliceLoading(t *testing.T) {
	h := newTestHost()
	h.loading = true

	p, err := New(h, host.NewBus(), Options{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, StateLoading, p.State())
}

func TestLoadEmpty(t *testing.T) {
	h := newTestHost()
	p := newReadyPanel(t, h, Options{})

	assert.Equal(t, StateEmpty, p.State())
	assert.Empty(t, p.Configs())
	assert.Nil(t, p.Document())
}

func TestLoadSelectsFirstConfig(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, "flow", p.Selected())

	doc := p.Document()
	require.NotNil(t, doc)
	assert.Equal(t, "Flow", doc.Name)
	assert.Len(t, doc.Nodes, 2)

	g, err := p.Graph()
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func TestLoadErrorOnFirstLoad(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", "{not json")

	p, err := New(h, host.NewBus(), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.Error(t, p.Load(context.Background()))
	assert.Equal(t, StateError, p.State())
	assert.Equal(t, errors.ErrCodeParse, errors.GetCode(p.Err()))
}

func TestReloadFailureKeepsDocument(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	// Corrupt the file after the first successful load.
	h.mu.Lock()
	h.files[filepath.Join(h.root, ".flowcanvas/flow.canvas")] = "{broken"
	h.mu.Unlock()

	assert.Error(t, p.Reload(context.Background()))
	assert.Equal(t, StateReady, p.State())
	require.NotNil(t, p.Document())
}

func TestSelect(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	h.addConfig(".flowcanvas/beta.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.Select(context.Background(), "beta"))
	assert.Equal(t, "beta", p.Selected())

	err := p.Select(context.Background(), "nope")
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestSelectionSurvivesReload(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	h.addConfig(".flowcanvas/beta.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.Select(context.Background(), "beta"))
	require.NoError(t, p.Reload(context.Background()))
	assert.Equal(t, "beta", p.Selected())
}

func TestEditAndSave(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	snaps := store.NewMemoryStore()
	p := newReadyPanel(t, h, Options{Store: snaps})

	require.NoError(t, p.Edit(reconcile.Changes{
		Positions: []reconcile.PositionChange{{NodeID: "a", Position: reconcile.Position{X: 100, Y: 200}}},
	}))
	assert.Equal(t, StateEditing, p.State())

	require.NoError(t, p.Save(context.Background()))
	assert.Equal(t, StateReady, p.State())
	assert.True(t, p.Pending().Empty())

	abs := filepath.Join(h.root, ".flowcanvas/flow.canvas")
	assert.Contains(t, h.written[abs], `"x": 100`)

	doc := p.Document()
	require.NotNil(t, doc)
	assert.Equal(t, 100, doc.Nodes[0].X)
	assert.Equal(t, 200, doc.Nodes[0].Y)

	archived, err := snaps.List(context.Background(), "flow", 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, 1, archived[0].Summary.NodesMoved)
}

func TestSaveFailureKeepsPending(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.Edit(reconcile.Changes{
		DeletedNodeIDs: []string{"b"},
	}))

	h.mu.Lock()
	h.writeErr = errors.New(errors.ErrCodeWriteFailure, "disk full")
	h.mu.Unlock()

	err := p.Save(context.Background())
	assert.Equal(t, errors.ErrCodeWriteFailure, errors.GetCode(err))
	assert.Equal(t, StateEditing, p.State())
	assert.False(t, p.Pending().Empty())

	// Retry after the write problem clears.
	h.mu.Lock()
	h.writeErr = nil
	h.mu.Unlock()
	require.NoError(t, p.Save(context.Background()))
	assert.Equal(t, StateReady, p.State())
}

func TestDiscard(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.Edit(reconcile.Changes{DeletedNodeIDs: []string{"b"}}))
	assert.Equal(t, StateEditing, p.State())

	p.Discard()
	assert.Equal(t, StateReady, p.State())
	assert.True(t, p.Pending().Empty())
}

func TestDataRefreshEventReloads(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	bus := host.NewBus()

	p, err := New(h, bus, Options{})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Load(context.Background()))
	assert.Len(t, p.Configs(), 1)

	h.addConfig(".flowcanvas/beta.canvas", flowCanvas)
	bus.Publish(host.TopicDataRefresh, nil)
	assert.Len(t, p.Configs(), 2)
}

func TestSelectConfigEvent(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	h.addConfig(".flowcanvas/beta.canvas", flowCanvas)
	bus := host.NewBus()

	p, err := New(h, bus, Options{})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Load(context.Background()))

	bus.Publish(host.TopicSelectConfig, "beta")
	assert.Equal(t, "beta", p.Selected())
}

func TestClosedPanelIgnoresEvents(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	h.addConfig(".flowcanvas/beta.canvas", flowCanvas)
	bus := host.NewBus()

	p, err := New(h, bus, Options{})
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))

	p.Close()
	bus.Publish(host.TopicSelectConfig, "beta")
	assert.Equal(t, "alpha", p.Selected())
}

func TestLoadTrace(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/alpha.canvas", flowCanvas)
	h.mu.Lock()
	h.files[filepath.Join(h.root, "packages/api/traces/run.canvas")] = flowCanvas
	h.mu.Unlock()
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.LoadTrace(context.Background(), "packages/api/traces/run.canvas"))
	assert.Equal(t, StateReady, p.State())
	assert.Empty(t, p.Selected())
	require.NotNil(t, p.Document())
}

func TestLayoutMovesNodes(t *testing.T) {
	h := newTestHost()
	h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
	p := newReadyPanel(t, h, Options{})

	require.NoError(t, p.Layout(context.Background(), layout.Options{Direction: layout.DirectionTB}))
	assert.Equal(t, StateEditing, p.State())

	doc := p.Document()
	require.NotNil(t, doc)
	// a feeds b, so b must end up strictly below a.
	assert.Greater(t, doc.Nodes[1].Y, doc.Nodes[0].Y)
}

func TestLayoutDeterministicAcrossPanels(t *testing.T) {
	run := func() []int {
		h := newTestHost()
		h.addConfig(".flowcanvas/flow.canvas", flowCanvas)
		p := newReadyPanel(t, h, Options{})
		require.NoError(t, p.Layout(context.Background(), layout.Options{}))
		doc := p.Document()
		out := make([]int, 0, len(doc.Nodes)*2)
		for _, n := range doc.Nodes {
			out = append(out, n.X, n.Y)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestLayoutCacheRoundTripPathConfig(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	defer fileCache.Close()

	h := newTestHost()
	h.addConfig("vvf.config.yaml", flowConfig)
	p := newReadyPanel(t, h, Options{Cache: fileCache})

	require.NoError(t, p.Layout(context.Background(), layout.Options{}))
	first := p.Document()
	require.NotNil(t, first)

	// The YAML form never stores positions, so the second run (a cache hit on
	// the unchanged serialization) must carry them some other way.
	require.NoError(t, p.Layout(context.Background(), layout.Options{}))
	second := p.Document()
	require.NotNil(t, second)

	moved := false
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].X, second.Nodes[i].X, "node %s x", first.Nodes[i].ID)
		assert.Equal(t, first.Nodes[i].Y, second.Nodes[i].Y, "node %s y", first.Nodes[i].ID)
		if first.Nodes[i].X != 0 || first.Nodes[i].Y != 0 {
			moved = true
		}
	}
	assert.True(t, moved, "layout should place nodes away from the origin")
}

func TestEditWithoutDocument(t *testing.T) {
	h := newTestHost()
	p := newReadyPanel(t, h, Options{})

	err := p.Edit(reconcile.Changes{DeletedNodeIDs: []string{"a"}})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}
