// Package document defines the configuration document model and its codecs.
//
// FlowCanvas consumes two declarative formats:
//
//   - Canvas documents (.canvas): JSON with explicit node positions, edges,
//     and a "pv" metadata block carrying name, version, and type styles.
//   - Path-based documents (vvf.config.yaml): YAML keyed by node type names
//     with allowed connections instead of positioned nodes.
//
// Both parse into the same [Document] type so the converter, reconciler, and
// layout engine operate on a single model. Serialization round-trips with
// stable formatting (2-space indent, preserved type-key order) so documents
// diff cleanly under version control.
//
// Parsing performs shape validation only: a document with edges referencing
// unknown node IDs parses successfully. Referential integrity is enforced by
// [Document.Validate], which the reconciler runs after applying edits.
package document

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// Format identifies the on-disk representation of a document.
type Format int

const (
	// FormatCanvas is the JSON .canvas representation.
	FormatCanvas Format = iota
	// FormatPathConfig is the YAML vvf.config.yaml representation.
	FormatPathConfig
)

// Layout modes stored in the display block. Manual means saved positions are
// authoritative on the next load; auto means the layout engine recomputes them.
const (
	LayoutAuto   = "auto"
	LayoutManual = "manual"
)

// Canonical anchor sides for edge endpoints.
const (
	SideTop    = "top"
	SideRight  = "right"
	SideBottom = "bottom"
	SideLeft   = "left"
)

// Document is the in-memory form of a configuration document.
// It is replaced wholesale on every reload; mutating code must operate on a
// [Document.Clone] rather than the original.
type Document struct {
	Format      Format
	Name        string
	Version     string
	Description string

	// Nodes are ordered; order is display/z-order and is preserved verbatim
	// through reconciliation. IDs must be unique within the document.
	Nodes []Node
	Edges []Edge

	// Type styles are read-only with respect to reconciliation. Key order is
	// recorded so serialization does not re-sort the original document.
	NodeTypes     map[string]TypeStyle
	NodeTypeOrder []string
	EdgeTypes     map[string]TypeStyle
	EdgeTypeOrder []string

	Display Display
}

// Node is a positioned element of a canvas document.
type Node struct {
	ID     string
	X      int
	Y      int
	Width  int // 0 means unset; the converter applies the default box
	Height int

	// Color is the legacy top-level color field. It loses to Ext.Fill and
	// wins over type defaults during conversion.
	Color string

	Ext NodeExt
}

// NodeExt is the pv/vv extension block attached to a node.
type NodeExt struct {
	Type   string
	Shape  string
	Fill   string
	Stroke string
	Icon   string
	Label  string
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string
	FromNode string
	ToNode   string
	FromSide string // top|right|bottom|left, empty when unanchored
	ToSide   string
	Type     string // key into EdgeTypes
}

// TypeStyle describes the rendering defaults for a node or edge type.
type TypeStyle struct {
	Shape     string `json:"shape,omitempty" yaml:"shape,omitempty"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	Stroke    string `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Animation string `json:"animation,omitempty" yaml:"animation,omitempty"`
}

// Display holds presentation-level settings persisted with the document.
type Display struct {
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Parse decodes a document by file extension: .canvas dispatches to
// [ParseCanvas], .yaml/.yml to [ParsePathConfig].
func Parse(name string, data []byte) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".canvas", ".json":
		return ParseCanvas(data)
	case ".yaml", ".yml":
		return ParsePathConfig(data)
	default:
		return nil, errors.New(errors.ErrCodeParse, "unsupported document extension: %s", filepath.Ext(name))
	}
}

// Serialize encodes the document back into its on-disk format.
func Serialize(d *Document) ([]byte, error) {
	switch d.Format {
	case FormatPathConfig:
		return MarshalPathConfig(d)
	default:
		return MarshalCanvas(d)
	}
}

// Clone returns a deep copy of the document. Reconciliation and layout mutate
// the clone only, leaving the original untouched.
func (d *Document) Clone() *Document {
	out := *d
	out.Nodes = slices.Clone(d.Nodes)
	out.Edges = slices.Clone(d.Edges)
	out.NodeTypeOrder = slices.Clone(d.NodeTypeOrder)
	out.EdgeTypeOrder = slices.Clone(d.EdgeTypeOrder)
	out.NodeTypes = cloneStyles(d.NodeTypes)
	out.EdgeTypes = cloneStyles(d.EdgeTypes)
	return &out
}

func cloneStyles(m map[string]TypeStyle) map[string]TypeStyle {
	if m == nil {
		return nil
	}
	out := make(map[string]TypeStyle, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NodeIndex returns the index of the node with the given ID, or -1.
func (d *Document) NodeIndex(id string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.ID == id })
}

// Validate checks structural invariants: unique node IDs and no edge
// referencing a missing node. A dangling reference after reconciliation is a
// defect, so violations carry ErrCodeIntegrity.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "node with empty id")
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeInvalidDocument, "duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range d.Edges {
		if !seen[e.FromNode] {
			return errors.New(errors.ErrCodeIntegrity, "edge %s references missing node %q", edgeLabel(e), e.FromNode)
		}
		if !seen[e.ToNode] {
			return errors.New(errors.ErrCodeIntegrity, "edge %s references missing node %q", edgeLabel(e), e.ToNode)
		}
	}
	return nil
}

func edgeLabel(e Edge) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s->%s", e.FromNode, e.ToNode)
}
