package document

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

func sortedKeys(m map[string]TypeStyle) []string {
	if len(m) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(m))
}

// Wire structs for the .canvas JSON format. Field order here is the
// serialization order, chosen to match documents written by hand.
type canvasFile struct {
	Nodes []canvasNode `json:"nodes"`
	Edges []canvasEdge `json:"edges"`
	PV    canvasMeta   `json:"pv"`
}

type canvasNode struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Color  string `json:"color,omitempty"`

	// PV is the extension block. VV is accepted as a legacy alias on read
	// and never written back.
	PV *canvasNodeExt `json:"pv,omitempty"`
	VV *canvasNodeExt `json:"vv,omitempty"`
}

type canvasNodeExt struct {
	NodeType string `json:"nodeType,omitempty"`
	Shape    string `json:"shape,omitempty"`
	Fill     string `json:"fill,omitempty"`
	Stroke   string `json:"stroke,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Label    string `json:"label,omitempty"`
}

type canvasEdge struct {
	ID       string         `json:"id"`
	FromNode string         `json:"fromNode"`
	ToNode   string         `json:"toNode"`
	FromSide string         `json:"fromSide,omitempty"`
	ToSide   string         `json:"toSide,omitempty"`
	PV       *canvasEdgeExt `json:"pv,omitempty"`
}

type canvasEdgeExt struct {
	EdgeType string `json:"edgeType,omitempty"`
}

type canvasMeta struct {
	Name        string               `json:"name"`
	Version     string               `json:"version"`
	Description string               `json:"description,omitempty"`
	NodeTypes   map[string]TypeStyle `json:"nodeTypes,omitempty"`
	EdgeTypes   map[string]TypeStyle `json:"edgeTypes,omitempty"`
	Display     *Display             `json:"display,omitempty"`
}

// ParseCanvas decodes a .canvas JSON document.
//
// The top-level nodes, edges, and pv keys must all be present (empty arrays
// are fine). Anything else is a PARSE_ERROR carrying the underlying syntax
// error. Dangling edge references are accepted; they are a render-time and
// reconciliation-time concern.
func ParseCanvas(data []byte) (*Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid canvas JSON")
	}
	for _, required := range []string{"nodes", "edges", "pv"} {
		if _, ok := keys[required]; !ok {
			return nil, errors.New(errors.ErrCodeParse, "canvas document missing %q", required)
		}
	}

	var file canvasFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid canvas JSON")
	}
	if file.PV.Name == "" {
		return nil, errors.New(errors.ErrCodeParse, "canvas document missing pv.name")
	}

	doc := &Document{
		Format:      FormatCanvas,
		Name:        file.PV.Name,
		Version:     file.PV.Version,
		Description: file.PV.Description,
		NodeTypes:   file.PV.NodeTypes,
		EdgeTypes:   file.PV.EdgeTypes,
	}
	doc.NodeTypeOrder = sortedKeys(file.PV.NodeTypes)
	doc.EdgeTypeOrder = sortedKeys(file.PV.EdgeTypes)
	if file.PV.Display != nil {
		doc.Display = *file.PV.Display
	}

	doc.Nodes = make([]Node, 0, len(file.Nodes))
	for _, n := range file.Nodes {
		ext := n.PV
		if ext == nil {
			ext = n.VV
		}
		node := Node{
			ID:     n.ID,
			X:      n.X,
			Y:      n.Y,
			Width:  n.Width,
			Height: n.Height,
			Color:  n.Color,
		}
		if ext != nil {
			node.Ext = NodeExt{
				Type:   ext.NodeType,
				Shape:  ext.Shape,
				Fill:   ext.Fill,
				Stroke: ext.Stroke,
				Icon:   ext.Icon,
				Label:  ext.Label,
			}
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	doc.Edges = make([]Edge, 0, len(file.Edges))
	for _, e := range file.Edges {
		edge := Edge{
			ID:       e.ID,
			FromNode: e.FromNode,
			ToNode:   e.ToNode,
			FromSide: e.FromSide,
			ToSide:   e.ToSide,
		}
		if e.PV != nil {
			edge.Type = e.PV.EdgeType
		}
		doc.Edges = append(doc.Edges, edge)
	}

	return doc, nil
}

// MarshalCanvas encodes a document as canvas JSON with 2-space indentation.
// Output is deterministic: node and edge order is preserved, map keys are
// emitted in sorted order by encoding/json.
func MarshalCanvas(d *Document) ([]byte, error) {
	file := canvasFile{
		Nodes: make([]canvasNode, 0, len(d.Nodes)),
		Edges: make([]canvasEdge, 0, len(d.Edges)),
		PV: canvasMeta{
			Name:        d.Name,
			Version:     d.Version,
			Description: d.Description,
			NodeTypes:   d.NodeTypes,
			EdgeTypes:   d.EdgeTypes,
		},
	}
	if d.Display != (Display{}) {
		disp := d.Display
		file.PV.Display = &disp
	}

	for _, n := range d.Nodes {
		cn := canvasNode{
			ID:     n.ID,
			X:      n.X,
			Y:      n.Y,
			Width:  n.Width,
			Height: n.Height,
			Color:  n.Color,
		}
		if n.Ext != (NodeExt{}) {
			cn.PV = &canvasNodeExt{
				NodeType: n.Ext.Type,
				Shape:    n.Ext.Shape,
				Fill:     n.Ext.Fill,
				Stroke:   n.Ext.Stroke,
				Icon:     n.Ext.Icon,
				Label:    n.Ext.Label,
			}
		}
		file.Nodes = append(file.Nodes, cn)
	}

	for _, e := range d.Edges {
		ce := canvasEdge{
			ID:       e.ID,
			FromNode: e.FromNode,
			ToNode:   e.ToNode,
			FromSide: e.FromSide,
			ToSide:   e.ToSide,
		}
		if e.Type != "" {
			ce.PV = &canvasEdgeExt{EdgeType: e.Type}
		}
		file.Edges = append(file.Edges, ce)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode canvas")
	}
	return buf.Bytes(), nil
}
