// Package render exports graphs to Graphviz DOT and renders them to SVG.
//
// The DOT export is a plain-text escape hatch: it works without cgo and can
// be piped into any Graphviz toolchain. SVG rendering uses the embedded
// Graphviz engine and needs no external binary.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/flowcanvas/flowcanvas/pkg/convert"
)

// Options configures DOT export.
type Options struct {
	// Rankdir sets the Graphviz layout direction (TB, BT, LR, RL).
	// Empty means TB.
	Rankdir string
	// Detailed includes node type and geometry in labels.
	Detailed bool
}

// ToDOT converts a render graph to Graphviz DOT format.
// Node fill, stroke, and shape come in already resolved, so the export
// maps them straight onto Graphviz attributes.
func ToDOT(g *convert.Graph, opts Options) string {
	rankdir := opts.Rankdir
	if rankdir == "" {
		rankdir = "TB"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		attrs := nodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		attrs := edgeAttrs(e)
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n convert.NodeState, detailed bool) []string {
	label := n.Label
	if detailed {
		parts := []string{label}
		if n.Type != "" {
			parts = append(parts, "type: "+n.Type)
		}
		parts = append(parts, fmt.Sprintf("%dx%d @ (%d,%d)", n.Width, n.Height, n.X, n.Y))
		label = strings.Join(parts, "\n")
	}

	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("shape=%s", dotShape(n.Shape)),
		fmt.Sprintf("fillcolor=%q", n.Fill),
		fmt.Sprintf("color=%q", n.Stroke),
	}
	return attrs
}

func edgeAttrs(e convert.EdgeState) []string {
	var attrs []string
	if e.Stroke != "" {
		attrs = append(attrs, fmt.Sprintf("color=%q", e.Stroke))
	}
	if e.Animated {
		attrs = append(attrs, "style=dashed")
	}
	if e.Type != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.Type))
	}
	return attrs
}

// dotShape maps canvas shapes onto the closest Graphviz node shape.
func dotShape(shape string) string {
	switch shape {
	case "ellipse", "circle":
		return "ellipse"
	case "diamond":
		return "diamond"
	case "parallelogram":
		return "parallelogram"
	case "cylinder", "database":
		return "cylinder"
	default:
		return "box"
	}
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz engine.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so the viewBox starts at
// the origin. Graphviz emits translated viewBoxes that confuse some hosts.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
