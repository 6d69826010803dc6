package layout

import (
	"math"
	"math/rand"

	"github.com/flowcanvas/flowcanvas/pkg/document"
)

// Force simulation parameters. The iteration budget is fixed so a layout call
// always costs the same and always converges to the same result for the same
// input.
const (
	forceIterations = 300
	forceSeed       = 42

	repulsion  = 80000.0
	springK    = 0.02
	gravity    = 0.01
	coolingEnd = 0.02
)

// forcePositions computes a force-directed layout for graphs the layered
// pipeline cannot handle (cyclic dependency sets).
//
// Nodes start on a deterministic circle with seeded jitter for symmetry
// breaking, then run a fixed budget of spring/repulsion iterations with
// linear cooling. Repeated calls on the same document produce bit-identical
// positions.
func forcePositions(doc *document.Document, g *digraph, opts Options) map[string]point {
	n := len(g.ids)
	rng := rand.New(rand.NewSource(forceSeed))

	radius := float64(n) * float64(max(opts.SpacingX, opts.SpacingY)) / 2
	if radius < 200 {
		radius = 200
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range g.ids {
		angle := 2 * math.Pi * float64(i) / float64(n)
		xs[i] = radius*math.Cos(angle) + rng.Float64()*10
		ys[i] = radius*math.Sin(angle) + rng.Float64()*10
	}

	springLen := float64(opts.SpacingX + opts.SpacingY)

	for iter := 0; iter < forceIterations; iter++ {
		cooling := 1.0 - (1.0-coolingEnd)*float64(iter)/float64(forceIterations)

		fx := make([]float64, n)
		fy := make([]float64, n)

		// Pairwise repulsion.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := xs[i] - xs[j]
				dy := ys[i] - ys[j]
				distSq := dx*dx + dy*dy
				if distSq < 1 {
					// Coincident nodes: push apart along a stable axis.
					dx, dy, distSq = 1, 0, 1
				}
				f := repulsion / distSq
				dist := math.Sqrt(distSq)
				fx[i] += f * dx / dist
				fy[i] += f * dy / dist
				fx[j] -= f * dx / dist
				fy[j] -= f * dy / dist
			}
		}

		// Spring attraction along edges.
		for _, id := range g.ids {
			i := g.index[id]
			for _, child := range g.children(id) {
				j := g.index[child]
				dx := xs[j] - xs[i]
				dy := ys[j] - ys[i]
				dist := math.Sqrt(dx*dx+dy*dy) + 1e-9
				f := springK * (dist - springLen)
				fx[i] += f * dx / dist
				fy[i] += f * dy / dist
				fx[j] -= f * dx / dist
				fy[j] -= f * dy / dist
			}
		}

		// Gentle pull toward the origin keeps disconnected parts nearby.
		for i := 0; i < n; i++ {
			fx[i] -= gravity * xs[i]
			fy[i] -= gravity * ys[i]
		}

		for i := 0; i < n; i++ {
			xs[i] += fx[i] * cooling
			ys[i] += fy[i] * cooling
		}
	}

	out := make(map[string]point, n)
	for i, id := range g.ids {
		out[id] = point{x: int(math.Round(xs[i])), y: int(math.Round(ys[i]))}
	}
	return out
}
