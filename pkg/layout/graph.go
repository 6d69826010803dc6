package layout

import "github.com/flowcanvas/flowcanvas/pkg/document"

// digraph is the adjacency view of a document used by the layout algorithms.
// Node order follows the document so every traversal is deterministic.
type digraph struct {
	ids      []string
	index    map[string]int
	outgoing map[string][]string
	incoming map[string][]string
}

// buildDigraph indexes the document's nodes and edges. Edges referencing
// unknown nodes are skipped: layout tolerates dangling references the same
// way rendering does.
func buildDigraph(doc *document.Document) *digraph {
	g := &digraph{
		ids:      make([]string, 0, len(doc.Nodes)),
		index:    make(map[string]int, len(doc.Nodes)),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
	for i, n := range doc.Nodes {
		g.ids = append(g.ids, n.ID)
		g.index[n.ID] = i
	}
	for _, e := range doc.Edges {
		if _, ok := g.index[e.FromNode]; !ok {
			continue
		}
		if _, ok := g.index[e.ToNode]; !ok {
			continue
		}
		g.outgoing[e.FromNode] = append(g.outgoing[e.FromNode], e.ToNode)
		g.incoming[e.ToNode] = append(g.incoming[e.ToNode], e.FromNode)
	}
	return g
}

func (g *digraph) children(id string) []string { return g.outgoing[id] }
func (g *digraph) parents(id string) []string  { return g.incoming[id] }
func (g *digraph) inDegree(id string) int      { return len(g.incoming[id]) }

// assignLayers computes longest-path-from-source layers via Kahn's algorithm.
// Each node lands at one plus the maximum layer of its parents, so source
// nodes occupy layer 0 and every edge points to a strictly deeper layer.
//
// The second return value reports whether the graph is acyclic. When a cycle
// exists some nodes never reach zero in-degree and layering is impossible;
// callers fall back to force-directed placement.
func (g *digraph) assignLayers() (map[string]int, bool) {
	inDegree := make(map[string]int, len(g.ids))
	layers := make(map[string]int, len(g.ids))
	queue := make([]string, 0, len(g.ids))

	for _, id := range g.ids {
		degree := g.inDegree(id)
		inDegree[id] = degree
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		processed++

		for _, child := range g.children(curr) {
			if layer := layers[curr] + 1; layer > layers[child] {
				layers[child] = layer
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	return layers, processed == len(g.ids)
}
