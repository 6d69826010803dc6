// Package reconcile merges pending UI edits back into a configuration document.
//
// The renderer accumulates edits (moves, resizes, renames, deletions, edge
// creations) as an atomic batch. [Apply] folds that batch into a deep copy of
// the original document, so a failed reconciliation never corrupts the
// in-memory source of truth: the caller either takes the returned document or
// discards it.
//
// Application order is fixed and matters for correctness: geometry first,
// then renames (which rewrite edge endpoints), then node deletions (which
// cascade to touching edges), then edge deletions strictly before edge
// creations so a delete-and-recreate batch leaves exactly one edge.
package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/pkg/document"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// Position is an absolute node position in canvas coordinates.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dimensions is a node bounding box size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PositionChange moves one node.
type PositionChange struct {
	NodeID   string   `json:"nodeId"`
	Position Position `json:"position"`
}

// DimensionChange resizes one node.
type DimensionChange struct {
	NodeID     string     `json:"nodeId"`
	Dimensions Dimensions `json:"dimensions"`
}

// NodeData carries field-level updates that are merged into a node's
// extension block. Empty fields leave the existing value untouched.
type NodeData struct {
	Icon   string `json:"icon,omitempty"`
	Label  string `json:"label,omitempty"`
	Shape  string `json:"shape,omitempty"`
	Fill   string `json:"fill,omitempty"`
	Stroke string `json:"stroke,omitempty"`
}

// NodeUpdate renames a node and/or merges field updates into it.
// A non-empty Type renames the node's identity: its ID and nodeType both
// become Type, and every edge referencing the old ID is rewritten.
type NodeUpdate struct {
	NodeID string    `json:"nodeId"`
	Type   string    `json:"type,omitempty"`
	Data   *NodeData `json:"data,omitempty"`
}

// EdgeCreate adds an edge between two nodes. Handle identifiers come from the
// renderer and may carry a "-out" suffix distinguishing source anchors; they
// are mapped back to the canonical side vocabulary.
type EdgeCreate struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Type         string `json:"type,omitempty"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// EdgeDelete removes edges matched by their (from, to, type) triple. Edge IDs
// are not used for matching because they are not guaranteed to survive a
// rename.
type EdgeDelete struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type,omitempty"`
}

// Changes is a snapshot batch of independent edit records.
type Changes struct {
	Positions      []PositionChange  `json:"positionChanges,omitempty"`
	Dimensions     []DimensionChange `json:"dimensionChanges,omitempty"`
	NodeUpdates    []NodeUpdate      `json:"nodeUpdates,omitempty"`
	DeletedNodeIDs []string          `json:"deletedNodeIds,omitempty"`
	CreatedEdges   []EdgeCreate      `json:"createdEdges,omitempty"`
	DeletedEdges   []EdgeDelete      `json:"deletedEdges,omitempty"`
}

// Empty reports whether the batch contains no edits.
func (c Changes) Empty() bool {
	return len(c.Positions) == 0 &&
		len(c.Dimensions) == 0 &&
		len(c.NodeUpdates) == 0 &&
		len(c.DeletedNodeIDs) == 0 &&
		len(c.CreatedEdges) == 0 &&
		len(c.DeletedEdges) == 0
}

// Apply merges the batch into a deep copy of original and returns the new
// document. The original is never mutated.
//
// Position, dimension, and update entries referencing unknown node IDs are
// tolerated as no-ops; the renderer may race a deletion. Deletion cascading
// and rename propagation are hard invariants: the result is validated and a
// dangling edge reference is returned as an INTEGRITY_VIOLATION, which
// indicates a bug here rather than bad input.
func Apply(original *document.Document, changes Changes) (*document.Document, error) {
	doc := original.Clone()

	for _, pc := range changes.Positions {
		if i := doc.NodeIndex(pc.NodeID); i >= 0 {
			doc.Nodes[i].X = pc.Position.X
			doc.Nodes[i].Y = pc.Position.Y
		}
	}

	for _, dc := range changes.Dimensions {
		if i := doc.NodeIndex(dc.NodeID); i >= 0 {
			doc.Nodes[i].Width = dc.Dimensions.Width
			doc.Nodes[i].Height = dc.Dimensions.Height
		}
	}

	for _, upd := range changes.NodeUpdates {
		applyNodeUpdate(doc, upd)
	}

	if len(changes.DeletedNodeIDs) > 0 {
		deleteNodes(doc, changes.DeletedNodeIDs)
	}

	// Deletions must run before creations so that deleting and recreating
	// the same (from, to, type) triple in one batch nets exactly one edge.
	for _, del := range changes.DeletedEdges {
		doc.Edges = slices.DeleteFunc(doc.Edges, func(e document.Edge) bool {
			return e.FromNode == del.From && e.ToNode == del.To && e.Type == del.Type
		})
	}

	for _, create := range changes.CreatedEdges {
		createEdge(doc, create)
	}

	if len(changes.Positions) > 0 {
		// Saved positions must survive the next load; an auto layout would
		// silently discard them.
		doc.Display.Layout = document.LayoutManual
	}

	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIntegrity, err, "document invalid after reconciliation")
	}
	return doc, nil
}

func applyNodeUpdate(doc *document.Document, upd NodeUpdate) {
	i := doc.NodeIndex(upd.NodeID)
	if i < 0 {
		return
	}
	node := &doc.Nodes[i]

	if upd.Type != "" && upd.Type != node.ID {
		// Refuse a rename that would collide with an existing node; the
		// remaining field updates still apply.
		if doc.NodeIndex(upd.Type) < 0 {
			oldID := node.ID
			node.ID = upd.Type
			node.Ext.Type = upd.Type
			for j := range doc.Edges {
				if doc.Edges[j].FromNode == oldID {
					doc.Edges[j].FromNode = upd.Type
				}
				if doc.Edges[j].ToNode == oldID {
					doc.Edges[j].ToNode = upd.Type
				}
			}
		}
	}

	if upd.Data != nil {
		// Field-level merge: empty fields keep their current value.
		if upd.Data.Icon != "" {
			node.Ext.Icon = upd.Data.Icon
		}
		if upd.Data.Label != "" {
			node.Ext.Label = upd.Data.Label
		}
		if upd.Data.Shape != "" {
			node.Ext.Shape = upd.Data.Shape
		}
		if upd.Data.Fill != "" {
			node.Ext.Fill = upd.Data.Fill
		}
		if upd.Data.Stroke != "" {
			node.Ext.Stroke = upd.Data.Stroke
		}
	}
}

func deleteNodes(doc *document.Document, ids []string) {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	doc.Nodes = slices.DeleteFunc(doc.Nodes, func(n document.Node) bool {
		return doomed[n.ID]
	})
	// Cascade: no orphan edges may remain.
	doc.Edges = slices.DeleteFunc(doc.Edges, func(e document.Edge) bool {
		return doomed[e.FromNode] || doomed[e.ToNode]
	})
}

func createEdge(doc *document.Document, create EdgeCreate) {
	// Idempotence within the batch: an identical triple already present is
	// skipped rather than duplicated.
	for _, e := range doc.Edges {
		if e.FromNode == create.From && e.ToNode == create.To && e.Type == create.Type {
			return
		}
	}

	doc.Edges = append(doc.Edges, document.Edge{
		ID:       newEdgeID(doc),
		FromNode: create.From,
		ToNode:   create.To,
		FromSide: handleToSide(create.SourceHandle),
		ToSide:   handleToSide(create.TargetHandle),
		Type:     create.Type,
	})
}

// newEdgeID generates an edge ID that does not collide with any existing one.
func newEdgeID(doc *document.Document) string {
	for {
		id := fmt.Sprintf("edge-%s", uuid.NewString()[:8])
		if !slices.ContainsFunc(doc.Edges, func(e document.Edge) bool { return e.ID == id }) {
			return id
		}
	}
}

// handleToSide maps a renderer anchor handle to the canonical side
// vocabulary, stripping the "-out" suffix used to distinguish source handles.
// Unrecognized handles yield an empty (unanchored) side.
func handleToSide(handle string) string {
	side := strings.TrimSuffix(handle, "-out")
	switch side {
	case document.SideTop, document.SideRight, document.SideBottom, document.SideLeft:
		return side
	default:
		return ""
	}
}
