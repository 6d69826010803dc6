package layout

import (
	"slices"

	"github.com/flowcanvas/flowcanvas/pkg/document"
)

// orderingSweeps is the number of alternating down/up barycenter passes.
// Two full rounds is enough for the graph sizes the panels render (tens to
// low hundreds of nodes).
const orderingSweeps = 4

// layeredPositions runs the Sugiyama-style pipeline: longest-path layering,
// barycenter crossing reduction, then coordinate assignment. Returns false
// when the graph contains a cycle and layering is impossible.
func layeredPositions(doc *document.Document, g *digraph, opts Options) (map[string]point, bool) {
	layers, acyclic := g.assignLayers()
	if !acyclic {
		return nil, false
	}

	order := initialOrder(g, layers)
	reduceCrossings(g, order)
	return layeredCoordinates(doc, order, opts), true
}

// initialOrder groups node IDs by layer, preserving document order within
// each layer so the starting point is deterministic.
func initialOrder(g *digraph, layers map[string]int) [][]string {
	max := 0
	for _, l := range layers {
		if l > max {
			max = l
		}
	}
	order := make([][]string, max+1)
	for _, id := range g.ids {
		l := layers[id]
		order[l] = append(order[l], id)
	}
	return order
}

// reduceCrossings runs alternating downward and upward barycenter sweeps.
// Each sweep reorders a layer by the mean position of its neighbors in the
// fixed adjacent layer; the sort is stable so ties keep their current order
// and the result stays deterministic.
func reduceCrossings(g *digraph, order [][]string) {
	for sweep := 0; sweep < orderingSweeps; sweep++ {
		if sweep%2 == 0 {
			for l := 1; l < len(order); l++ {
				sortByBarycenter(order[l], order[l-1], g.parents)
			}
		} else {
			for l := len(order) - 2; l >= 0; l-- {
				sortByBarycenter(order[l], order[l+1], g.children)
			}
		}
	}
}

func sortByBarycenter(layer, fixed []string, neighbors func(string) []string) {
	pos := make(map[string]int, len(fixed))
	for i, id := range fixed {
		pos[id] = i
	}

	weight := make(map[string]float64, len(layer))
	for i, id := range layer {
		sum, count := 0.0, 0
		for _, n := range neighbors(id) {
			if p, ok := pos[n]; ok {
				sum += float64(p)
				count++
			}
		}
		if count == 0 {
			// Keep nodes without neighbors where they are.
			weight[id] = float64(i)
		} else {
			weight[id] = sum / float64(count)
		}
	}

	slices.SortStableFunc(layer, func(a, b string) int {
		switch {
		case weight[a] < weight[b]:
			return -1
		case weight[a] > weight[b]:
			return 1
		default:
			return 0
		}
	})
}

type point struct{ x, y int }

// layeredCoordinates turns a per-layer ordering into concrete positions.
// Within a layer nodes are packed along the cross axis with SpacingX/SpacingY
// gaps and the layer is centered; layers advance along the direction axis by
// the thickest box seen in the previous layer plus spacing.
func layeredCoordinates(doc *document.Document, order [][]string, opts Options) map[string]point {
	size := make(map[string]point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		size[n.ID] = nodeBox(n)
	}

	horizontal := opts.Direction == DirectionLR || opts.Direction == DirectionRL
	crossGap := opts.SpacingX
	layerGap := opts.SpacingY
	if horizontal {
		crossGap = opts.SpacingY
		layerGap = opts.SpacingX
	}

	cross := func(id string) int {
		if horizontal {
			return size[id].y
		}
		return size[id].x
	}
	along := func(id string) int {
		if horizontal {
			return size[id].x
		}
		return size[id].y
	}

	out := make(map[string]point, len(doc.Nodes))
	layerOffset := 0
	for _, layer := range order {
		if len(layer) == 0 {
			continue
		}

		total := 0
		thickest := 0
		for _, id := range layer {
			total += cross(id)
			if along(id) > thickest {
				thickest = along(id)
			}
		}
		total += crossGap * (len(layer) - 1)

		c := -total / 2
		for _, id := range layer {
			if horizontal {
				out[id] = point{x: layerOffset, y: c}
			} else {
				out[id] = point{x: c, y: layerOffset}
			}
			c += cross(id) + crossGap
		}

		layerOffset += thickest + layerGap
	}

	// BT and RL run the layer axis in the opposite direction.
	if opts.Direction == DirectionBT {
		for id, p := range out {
			out[id] = point{x: p.x, y: -p.y - size[id].y}
		}
	}
	if opts.Direction == DirectionRL {
		for id, p := range out {
			out[id] = point{x: -p.x - size[id].x, y: p.y}
		}
	}

	return out
}
