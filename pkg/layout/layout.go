// Package layout computes node positions for configuration documents.
//
// The engine is deterministic and CPU-only: the same document and options
// always produce the same integer positions, so repeated auto-layout of an
// unchanged document writes no diff.
//
// # Algorithm
//
// The primary path is a layered (Sugiyama-style) pipeline: nodes are ranked
// by longest path from the sources, layers are reordered with a barycenter
// heuristic to reduce edge crossings, and coordinates are assigned along the
// requested direction axis. When the edge set contains a cycle the
// topological ranking is impossible, and the engine falls back to a
// force-directed simulation with a fixed iteration budget and a constant
// random seed.
//
// Either way, a post-pass resolves any remaining bounding-box collisions, so
// the returned document never contains overlapping nodes.
package layout

import (
	"slices"
	"strings"

	"github.com/flowcanvas/flowcanvas/pkg/convert"
	"github.com/flowcanvas/flowcanvas/pkg/document"
	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// Direction selects the layer axis: TB and BT stack layers vertically,
// LR and RL horizontally.
type Direction string

const (
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
)

// Default spacing between node bounding boxes on each axis.
const (
	DefaultSpacingX = 60
	DefaultSpacingY = 80
)

// Options configures a layout run.
type Options struct {
	Direction Direction
	SpacingX  int
	SpacingY  int

	// UpdateEdgeSides recomputes each edge's anchor sides from the final
	// relative positions of its endpoints.
	UpdateEdgeSides bool
}

func (o Options) withDefaults() Options {
	if o.Direction == "" {
		o.Direction = DirectionTB
	}
	if o.SpacingX <= 0 {
		o.SpacingX = DefaultSpacingX
	}
	if o.SpacingY <= 0 {
		o.SpacingY = DefaultSpacingY
	}
	return o
}

// Layout returns a new document with recomputed node positions. Every other
// field, including node order and dimensions, is carried over untouched.
func Layout(doc *document.Document, opts Options) (*document.Document, error) {
	opts = opts.withDefaults()
	switch opts.Direction {
	case DirectionTB, DirectionBT, DirectionLR, DirectionRL:
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown layout direction %q", opts.Direction)
	}

	out := doc.Clone()
	if len(out.Nodes) == 0 {
		return out, nil
	}

	g := buildDigraph(out)
	positions, ok := layeredPositions(out, g, opts)
	if !ok {
		positions = forcePositions(out, g, opts)
	}

	resolveCollisions(out, positions, opts.Direction)

	for i := range out.Nodes {
		if p, ok := positions[out.Nodes[i].ID]; ok {
			out.Nodes[i].X = p.x
			out.Nodes[i].Y = p.y
		}
	}

	if opts.UpdateEdgeSides {
		updateEdgeSides(out)
	}

	return out, nil
}

// nodeBox returns the effective bounding box, applying the renderer's default
// box to nodes without explicit dimensions.
func nodeBox(n document.Node) point {
	w, h := n.Width, n.Height
	if w == 0 && h == 0 {
		w, h = convert.DefaultWidth, convert.DefaultHeight
	}
	return point{x: w, y: h}
}

// resolveCollisions guarantees no two boxes overlap after layout. Nodes are
// processed in a deterministic order and pushed along the layer axis past any
// already-placed box they intersect. Pushing only ever moves a node in one
// direction, so the pass terminates.
func resolveCollisions(doc *document.Document, positions map[string]point, dir Direction) {
	size := make(map[string]point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		size[n.ID] = nodeBox(n)
	}

	ids := make([]string, 0, len(positions))
	for _, n := range doc.Nodes {
		if _, ok := positions[n.ID]; ok {
			ids = append(ids, n.ID)
		}
	}
	vertical := dir == DirectionTB || dir == DirectionBT
	slices.SortStableFunc(ids, func(a, b string) int {
		pa, pb := positions[a], positions[b]
		if vertical {
			if pa.y != pb.y {
				return pa.y - pb.y
			}
			if pa.x != pb.x {
				return pa.x - pb.x
			}
		} else {
			if pa.x != pb.x {
				return pa.x - pb.x
			}
			if pa.y != pb.y {
				return pa.y - pb.y
			}
		}
		return strings.Compare(a, b)
	})

	placed := make([]string, 0, len(ids))
	for _, id := range ids {
		for {
			blocker := ""
			for _, other := range placed {
				if overlaps(positions[id], size[id], positions[other], size[other]) {
					blocker = other
					break
				}
			}
			if blocker == "" {
				break
			}
			p := positions[id]
			if vertical {
				p.y = positions[blocker].y + size[blocker].y
			} else {
				p.x = positions[blocker].x + size[blocker].x
			}
			positions[id] = p
		}
		placed = append(placed, id)
	}
}

func overlaps(pa, sa, pb, sb point) bool {
	return pa.x < pb.x+sb.x && pb.x < pa.x+sa.x &&
		pa.y < pb.y+sb.y && pb.y < pa.y+sa.y
}

// updateEdgeSides anchors each edge on the sides facing its peer, picked by
// the dominant axis between the two box centers.
func updateEdgeSides(doc *document.Document) {
	center := make(map[string]point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		box := nodeBox(n)
		center[n.ID] = point{x: n.X + box.x/2, y: n.Y + box.y/2}
	}

	for i := range doc.Edges {
		from, okFrom := center[doc.Edges[i].FromNode]
		to, okTo := center[doc.Edges[i].ToNode]
		if !okFrom || !okTo {
			continue
		}
		dx, dy := to.x-from.x, to.y-from.y
		if abs(dx) >= abs(dy) {
			if dx >= 0 {
				doc.Edges[i].FromSide = document.SideRight
				doc.Edges[i].ToSide = document.SideLeft
			} else {
				doc.Edges[i].FromSide = document.SideLeft
				doc.Edges[i].ToSide = document.SideRight
			}
		} else {
			if dy >= 0 {
				doc.Edges[i].FromSide = document.SideBottom
				doc.Edges[i].ToSide = document.SideTop
			} else {
				doc.Edges[i].FromSide = document.SideTop
				doc.Edges[i].ToSide = document.SideBottom
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
