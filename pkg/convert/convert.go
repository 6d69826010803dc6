// Package convert transforms configuration documents into renderable graphs.
//
// The conversion is pure and deterministic: the same document always produces
// the same node and edge states, and the input document is never mutated.
// Style resolution tolerates unknown type names by falling back to defaults
// rather than failing, so forward-compatible config additions still render.
package convert

import (
	"github.com/flowcanvas/flowcanvas/pkg/document"
)

// Defaults applied when neither the node nor its type specifies a value.
const (
	DefaultFill   = "#e2e8f0"
	DefaultStroke = "#475569"
	DefaultShape  = "rectangle"

	// Default bounding box for nodes without explicit dimensions.
	DefaultWidth  = 160
	DefaultHeight = 60
)

// Graph is the renderable form of a document.
type Graph struct {
	Nodes []NodeState `json:"nodes"`
	Edges []EdgeState `json:"edges"`
}

// NodeState carries everything the renderer needs for one node: resolved
// geometry and resolved style, with all priority rules already applied.
type NodeState struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Type   string `json:"type,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Shape  string `json:"shape"`
	Fill   string `json:"fill"`
	Stroke string `json:"stroke"`
	Icon   string `json:"icon,omitempty"`
}

// EdgeState is a renderable edge with its style resolved from edgeTypes.
type EdgeState struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	FromSide string `json:"fromSide,omitempty"`
	ToSide   string `json:"toSide,omitempty"`
	Type     string `json:"type,omitempty"`
	Stroke   string `json:"stroke,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

// ToGraph converts a document to its renderable graph.
//
// Fill resolution priority: pv.fill, then the legacy top-level color field,
// then the node type's color, then DefaultFill. Stroke resolves the same way
// from pv.stroke (the legacy color field does not apply to strokes). Shape
// falls back node → type → rectangle. Explicit node dimensions always win
// over defaults; a node with neither width nor height gets the default box.
func ToGraph(doc *document.Document) *Graph {
	g := &Graph{
		Nodes: make([]NodeState, 0, len(doc.Nodes)),
		Edges: make([]EdgeState, 0, len(doc.Edges)),
	}

	for _, n := range doc.Nodes {
		style := doc.NodeTypes[n.Ext.Type] // zero value for unknown types

		state := NodeState{
			ID:     n.ID,
			Label:  firstNonEmpty(n.Ext.Label, n.ID),
			Type:   n.Ext.Type,
			X:      n.X,
			Y:      n.Y,
			Width:  n.Width,
			Height: n.Height,
			Shape:  firstNonEmpty(n.Ext.Shape, style.Shape, DefaultShape),
			Fill:   firstNonEmpty(n.Ext.Fill, n.Color, style.Color, DefaultFill),
			Stroke: firstNonEmpty(n.Ext.Stroke, style.Stroke, DefaultStroke),
			Icon:   n.Ext.Icon,
		}
		if state.Width == 0 && state.Height == 0 {
			state.Width = DefaultWidth
			state.Height = DefaultHeight
		}
		g.Nodes = append(g.Nodes, state)
	}

	for _, e := range doc.Edges {
		style := doc.EdgeTypes[e.Type]

		g.Edges = append(g.Edges, EdgeState{
			ID:       e.ID,
			From:     e.FromNode,
			To:       e.ToNode,
			FromSide: e.FromSide,
			ToSide:   e.ToSide,
			Type:     e.Type,
			Stroke:   firstNonEmpty(style.Stroke, style.Color),
			Animated: style.Animation != "",
		})
	}

	return g
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
