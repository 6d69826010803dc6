// Package panel implements the graph panel controller.
//
// The panel is a state machine over the discovered configs and the currently
// selected document. It owns the full edit cycle: discover, parse, convert,
// stage interactive edits, reconcile them back into the document, and write
// the result through the host.
//
// States:
//
//	Loading  file tree slice still populating
//	Error    first load failed, nothing to show
//	Empty    scan found no configs
//	Ready    a document is loaded and clean
//	Editing  staged changes exist that have not been saved
package panel

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/convert"
	"github.com/flowcanvas/flowcanvas/pkg/discovery"
	"github.com/flowcanvas/flowcanvas/pkg/document"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/host"
	"github.com/flowcanvas/flowcanvas/pkg/layout"
	"github.com/flowcanvas/flowcanvas/pkg/observability"
	"github.com/flowcanvas/flowcanvas/pkg/reconcile"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// State identifies the panel lifecycle phase.
type State string

const (
	StateLoading State = "loading"
	StateError   State = "error"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
	StateEditing State = "editing"
)

// Options configures a panel. All fields are optional.
type Options struct {
	// Cache stores layout results keyed by document content hash. Nil
	// disables caching.
	Cache cache.Cache
	// Keyer derives cache keys; nil uses the default SHA-256 keyer.
	Keyer cache.Keyer
	// Store archives a snapshot on every successful save. Nil disables
	// history.
	Store store.Store
	// Logger for panel lifecycle logging; nil uses log.Default().
	Logger *log.Logger
	// LayoutDefaults are applied when a Layout call leaves options zero.
	LayoutDefaults layout.Options
}

// Panel is the graph panel controller. All methods are safe for concurrent
// use; file IO happens outside the lock so a slow read never blocks state
// queries.
type Panel struct {
	hc     host.Context
	events host.Events
	opts   Options
	keyer  cache.Keyer
	logger *log.Logger

	mu         sync.Mutex
	gen        int
	state      State
	err        error
	configs    []discovery.ConfigFile
	selected   string
	doc        *document.Document
	pending    reconcile.Changes
	loadedOnce bool

	disposers []func()
}

// New creates a panel bound to a host context and event bus. It verifies the
// host capabilities and subscribes to refresh and cross-panel topics; call
// [Panel.Close] to release the subscriptions.
func New(hc host.Context, events host.Events, opts Options) (*Panel, error) {
	if err := host.RequireCapabilities(hc); err != nil {
		return nil, err
	}

	keyer := opts.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := &Panel{
		hc:     hc,
		events: events,
		opts:   opts,
		keyer:  keyer,
		logger: logger,
		state:  StateLoading,
	}

	if events != nil {
		p.disposers = append(p.disposers,
			events.Subscribe(host.TopicDataRefresh, func(any) {
				if err := p.Reload(context.Background()); err != nil {
					p.logger.Warn("refresh reload failed", "err", err)
				}
			}),
			events.Subscribe(host.TopicSelectConfig, func(payload any) {
				id, ok := payload.(string)
				if !ok {
					return
				}
				if err := p.Select(context.Background(), id); err != nil {
					p.logger.Warn("cross-panel select failed", "id", id, "err", err)
				}
			}),
			events.Subscribe(host.TopicLoadTrace, func(payload any) {
				path, ok := payload.(string)
				if !ok {
					return
				}
				if err := p.LoadTrace(context.Background(), path); err != nil {
					p.logger.Warn("trace load failed", "path", path, "err", err)
				}
			}),
		)
	}

	return p, nil
}

// Close releases the event subscriptions. Safe to call more than once.
func (p *Panel) Close() {
	for _, dispose := range p.disposers {
		dispose()
	}
	p.disposers = nil
}

// State returns the current lifecycle state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error behind an Error state, nil otherwise.
func (p *Panel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Configs returns the discovered configs from the last load.
func (p *Panel) Configs() []discovery.ConfigFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]discovery.ConfigFile, len(p.configs))
	copy(out, p.configs)
	return out
}

// Selected returns the ID of the currently selected config, or empty.
func (p *Panel) Selected() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Document returns a deep copy of the current document, or nil.
func (p *Panel) Document() *document.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil
	}
	return p.doc.Clone()
}

// Graph converts the current document to its renderable graph.
func (p *Panel) Graph() (*convert.Graph, error) {
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no document loaded")
	}
	return convert.ToGraph(doc), nil
}

// Pending returns the staged changes.
func (p *Panel) Pending() reconcile.Changes {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Load scans the file tree and loads the selected config. The previous
// selection is kept when its config still exists, otherwise the first config
// is selected. A Load started later supersedes this one.
func (p *Panel) Load(ctx context.Context) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	prevSelected := p.selected
	p.mu.Unlock()

	if p.hc.IsSliceLoading(host.SliceFileTree) {
		p.commit(gen, func() {
			p.state = StateLoading
			p.err = nil
		})
		return nil
	}

	start := time.Now()
	slice, err := p.hc.GetSlice(host.SliceFileTree)
	if err != nil {
		return p.failLoad(gen, errors.Wrap(errors.ErrCodeInternal, err, "file tree unavailable"))
	}
	if slice.Err != nil {
		return p.failLoad(gen, errors.Wrap(errors.ErrCodeInternal, slice.Err, "file tree failed to populate"))
	}

	configs := discovery.Scan(slice.AllFiles)
	observability.Panel().OnScanComplete(ctx, len(configs), time.Since(start))

	if len(configs) == 0 {
		p.commit(gen, func() {
			p.state = StateEmpty
			p.err = nil
			p.configs = configs
			p.selected = ""
			p.doc = nil
			p.pending = reconcile.Changes{}
			p.loadedOnce = true
		})
		return nil
	}

	selected := configs[0].ID
	for _, c := range configs {
		if c.ID == prevSelected {
			selected = prevSelected
			break
		}
	}

	doc, err := p.loadDocument(ctx, configs, selected)
	if err != nil {
		return p.failLoad(gen, err)
	}

	p.commit(gen, func() {
		p.state = StateReady
		p.err = nil
		p.configs = configs
		p.selected = selected
		p.doc = doc
		p.pending = reconcile.Changes{}
		p.loadedOnce = true
	})
	return nil
}

// Reload is Load with kept selection; a separate name for event handlers.
func (p *Panel) Reload(ctx context.Context) error {
	return p.Load(ctx)
}

// Select loads the config with the given discovery ID and makes it current.
// Staged changes on the previous document are dropped.
func (p *Panel) Select(ctx context.Context, id string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	configs := p.configs
	p.mu.Unlock()

	doc, err := p.loadDocument(ctx, configs, id)
	if err != nil {
		return err
	}

	p.commit(gen, func() {
		p.state = StateReady
		p.err = nil
		p.selected = id
		p.doc = doc
		p.pending = reconcile.Changes{}
	})
	return nil
}

// LoadTrace loads a document by path without it being part of the scanned
// config list. Used by the load-trace cross-panel message.
func (p *Panel) LoadTrace(ctx context.Context, path string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.hc.RepositoryPath(), path)
	}
	doc, err := p.readAndParse(ctx, filepath.Base(path), abs, path)
	if err != nil {
		return err
	}

	p.commit(gen, func() {
		p.state = StateReady
		p.err = nil
		p.selected = ""
		p.doc = doc
		p.pending = reconcile.Changes{}
	})
	return nil
}

// Edit stages a batch of changes on top of any already staged ones.
func (p *Panel) Edit(changes reconcile.Changes) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return errors.New(errors.ErrCodeNotFound, "no document loaded")
	}
	p.pending = mergeChanges(p.pending, changes)
	if !p.pending.Empty() {
		p.state = StateEditing
	}
	return nil
}

// Discard drops all staged changes.
func (p *Panel) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = reconcile.Changes{}
	if p.doc != nil {
		p.state = StateReady
	}
}

// Save reconciles the staged changes into the document, writes the result
// through the host, and archives a snapshot. On failure the staged changes
// stay put so the user can retry without redoing edits.
func (p *Panel) Save(ctx context.Context) error {
	p.mu.Lock()
	gen := p.gen
	doc := p.doc
	pending := p.pending
	selected := p.selected
	configs := p.configs
	p.mu.Unlock()

	if doc == nil {
		return errors.New(errors.ErrCodeNotFound, "no document loaded")
	}

	cfg, ok := findConfig(configs, selected)
	if !ok {
		return errors.New(errors.ErrCodeConfigNotFound, "config not selected or no longer exists: %s", selected)
	}

	start := time.Now()
	next, err := reconcile.Apply(doc, pending)
	observability.Panel().OnReconcileComplete(ctx, selected, changeCount(pending), err)
	if err != nil {
		return err
	}

	data, err := document.Serialize(next)
	if err != nil {
		return err
	}

	err = p.hc.WriteFile(ctx, p.absPath(cfg.Path), string(data))
	observability.Panel().OnSaveComplete(ctx, selected, time.Since(start), err)
	if err != nil {
		p.logger.Error("save failed, changes kept staged", "config", selected, "err", err)
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "failed to write %s", cfg.Path)
	}

	p.archiveSnapshot(ctx, cfg, data, pending)

	p.commit(gen, func() {
		p.state = StateReady
		p.doc = next
		p.pending = reconcile.Changes{}
	})
	p.logger.Info("saved", "config", selected, "bytes", len(data))
	return nil
}

// Layout runs auto-layout on the current document and makes the result the
// current document. The result is cached by content hash and options, so
// relaying out an unchanged document is free.
func (p *Panel) Layout(ctx context.Context, opts layout.Options) error {
	p.mu.Lock()
	gen := p.gen
	doc := p.doc
	selected := p.selected
	p.mu.Unlock()

	if doc == nil {
		return errors.New(errors.ErrCodeNotFound, "no document loaded")
	}
	opts = p.fillLayoutDefaults(opts)

	observability.Panel().OnLayoutStart(ctx, selected, len(doc.Nodes))
	start := time.Now()

	next, err := p.cachedLayout(ctx, doc, opts)
	observability.Panel().OnLayoutComplete(ctx, selected, time.Since(start), err)
	if err != nil {
		return err
	}

	p.commit(gen, func() {
		p.doc = next
		if p.state == StateReady {
			p.state = StateEditing
		}
	})
	return nil
}

// layoutPoint is the per-node payload of a cached layout result. Positions
// are cached on their own rather than as a serialized document: the
// path-config format does not store positions, so the document codec cannot
// carry a layout result through the cache.
type layoutPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p *Panel) cachedLayout(ctx context.Context, doc *document.Document, opts layout.Options) (*document.Document, error) {
	// Edge-side rewriting changes more than positions, so those runs always
	// recompute.
	if p.opts.Cache == nil || opts.UpdateEdgeSides {
		return layout.Layout(doc, opts)
	}

	data, err := document.Serialize(doc)
	if err != nil {
		return nil, err
	}
	key := p.keyer.LayoutKey(cache.Hash(data), cache.LayoutKeyOpts{
		Direction: string(opts.Direction),
		SpacingX:  opts.SpacingX,
		SpacingY:  opts.SpacingY,
	})

	if cached, found, err := p.opts.Cache.Get(ctx, key); err == nil && found {
		if next, ok := applyCachedPositions(doc, cached); ok {
			observability.Cache().OnCacheHit(ctx, "layout")
			return next, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	next, err := layout.Layout(doc, opts)
	if err != nil {
		return nil, err
	}
	points := make(map[string]layoutPoint, len(next.Nodes))
	for _, n := range next.Nodes {
		points[n.ID] = layoutPoint{X: n.X, Y: n.Y}
	}
	if out, err := json.Marshal(points); err == nil {
		if err := p.opts.Cache.Set(ctx, key, out, 24*time.Hour); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(out))
		}
	}
	return next, nil
}

// applyCachedPositions maps a cached position set onto a clone of doc. An
// entry that does not cover every node exactly is rejected so the caller
// recomputes instead of applying a partial result.
func applyCachedPositions(doc *document.Document, cached []byte) (*document.Document, bool) {
	var points map[string]layoutPoint
	if err := json.Unmarshal(cached, &points); err != nil || len(points) != len(doc.Nodes) {
		return nil, false
	}
	next := doc.Clone()
	for i := range next.Nodes {
		pt, ok := points[next.Nodes[i].ID]
		if !ok {
			return nil, false
		}
		next.Nodes[i].X = pt.X
		next.Nodes[i].Y = pt.Y
	}
	return next, true
}

func (p *Panel) fillLayoutDefaults(opts layout.Options) layout.Options {
	def := p.opts.LayoutDefaults
	if opts.Direction == "" {
		opts.Direction = def.Direction
	}
	if opts.SpacingX == 0 {
		opts.SpacingX = def.SpacingX
	}
	if opts.SpacingY == 0 {
		opts.SpacingY = def.SpacingY
	}
	return opts
}

// loadDocument resolves id in configs, reads it through the host, and parses.
func (p *Panel) loadDocument(ctx context.Context, configs []discovery.ConfigFile, id string) (*document.Document, error) {
	cfg, ok := findConfig(configs, id)
	if !ok {
		return nil, errors.New(errors.ErrCodeConfigNotFound, "unknown config: %s", id)
	}
	return p.readAndParse(ctx, cfg.Path, p.absPath(cfg.Path), cfg.ID)
}

func (p *Panel) readAndParse(ctx context.Context, name, absPath, configID string) (*document.Document, error) {
	content, err := p.hc.ReadFile(ctx, absPath)
	if err != nil {
		return nil, err
	}

	observability.Panel().OnParseStart(ctx, configID)
	start := time.Now()
	doc, err := document.Parse(name, []byte(content))
	nodes := 0
	if doc != nil {
		nodes = len(doc.Nodes)
	}
	observability.Panel().OnParseComplete(ctx, configID, nodes, time.Since(start), err)
	return doc, err
}

func (p *Panel) archiveSnapshot(ctx context.Context, cfg discovery.ConfigFile, data []byte, pending reconcile.Changes) {
	if p.opts.Store == nil {
		return
	}
	snap := store.Snapshot{
		ID:       cfg.ID + "-" + cache.Hash(data)[:12],
		ConfigID: cfg.ID,
		Name:     cfg.Name,
		Content:  data,
		Summary:  summarize(pending),
		SavedAt:  time.Now().UTC(),
	}
	if err := p.opts.Store.Save(ctx, snap); err != nil {
		// History is best-effort; the document itself is already written.
		p.logger.Warn("snapshot archive failed", "config", cfg.ID, "err", err)
	}
}

// failLoad transitions to Error only when nothing was ever loaded; after a
// successful load the previous document stays visible.
func (p *Panel) failLoad(gen int, err error) error {
	p.commit(gen, func() {
		if !p.loadedOnce {
			p.state = StateError
			p.err = err
		}
	})
	return err
}

// commit applies fn under the lock unless a newer load superseded gen.
func (p *Panel) commit(gen int, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	fn()
}

func (p *Panel) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.hc.RepositoryPath(), path)
}

func findConfig(configs []discovery.ConfigFile, id string) (discovery.ConfigFile, bool) {
	for _, c := range configs {
		if c.ID == id {
			return c, true
		}
	}
	return discovery.ConfigFile{}, false
}

func mergeChanges(base, next reconcile.Changes) reconcile.Changes {
	base.Positions = append(base.Positions, next.Positions...)
	base.Dimensions = append(base.Dimensions, next.Dimensions...)
	base.NodeUpdates = append(base.NodeUpdates, next.NodeUpdates...)
	base.DeletedNodeIDs = append(base.DeletedNodeIDs, next.DeletedNodeIDs...)
	base.CreatedEdges = append(base.CreatedEdges, next.CreatedEdges...)
	base.DeletedEdges = append(base.DeletedEdges, next.DeletedEdges...)
	return base
}

func changeCount(c reconcile.Changes) int {
	return len(c.Positions) + len(c.Dimensions) + len(c.NodeUpdates) +
		len(c.DeletedNodeIDs) + len(c.CreatedEdges) + len(c.DeletedEdges)
}

func summarize(c reconcile.Changes) store.Summary {
	return store.Summary{
		NodesMoved:   len(c.Positions),
		NodesResized: len(c.Dimensions),
		NodesUpdated: len(c.NodeUpdates),
		NodesDeleted: len(c.DeletedNodeIDs),
		EdgesCreated: len(c.CreatedEdges),
		EdgesDeleted: len(c.DeletedEdges),
	}
}
