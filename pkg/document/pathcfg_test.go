package document

import (
	"reflect"
	"strings"
	"testing"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

const sampleConfig = `metadata:
  name: service-map
  version: "2.1"
  description: Allowed service connections
nodeTypes:
  gateway:
    shape: rectangle
    color: "#0ea5e9"
  worker:
    shape: rectangle
  archive:
    shape: cylinder
allowedConnections:
  - from: gateway
    to: worker
    via: dispatch
  - from: worker
    to: archive
    via: persist
display:
  layout: auto
`

func TestParsePathConfig(t *testing.T) {
	doc, err := ParsePathConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParsePathConfig() error: %v", err)
	}

	if doc.Format != FormatPathConfig {
		t.Errorf("Format = %v, want FormatPathConfig", doc.Format)
	}
	if doc.Name != "service-map" || doc.Version != "2.1" {
		t.Errorf("metadata = %s/%s, want service-map/2.1", doc.Name, doc.Version)
	}

	// Every nodeType becomes a node, in declaration order.
	wantOrder := []string{"gateway", "worker", "archive"}
	if !reflect.DeepEqual(doc.NodeTypeOrder, wantOrder) {
		t.Errorf("NodeTypeOrder = %v, want %v", doc.NodeTypeOrder, wantOrder)
	}
	if len(doc.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(doc.Nodes))
	}
	if doc.Nodes[0].ID != "gateway" || doc.Nodes[0].Ext.Type != "gateway" {
		t.Errorf("nodes[0] = %+v, want gateway", doc.Nodes[0])
	}

	if len(doc.Edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(doc.Edges))
	}
	if doc.Edges[0].FromNode != "gateway" || doc.Edges[0].ToNode != "worker" || doc.Edges[0].Type != "dispatch" {
		t.Errorf("edges[0] = %+v", doc.Edges[0])
	}
	if doc.Display.Layout != LayoutAuto {
		t.Errorf("display.layout = %q, want auto", doc.Display.Layout)
	}
}

func TestParsePathConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed YAML", "metadata: [unclosed"},
		{"not a mapping", "- a\n- b\n"},
		{"missing metadata", "nodeTypes:\n  a: {}\n"},
		{"missing name", "metadata:\n  version: \"1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePathConfig([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeParse) {
				t.Errorf("error code = %s, want PARSE_ERROR", errors.GetCode(err))
			}
		})
	}
}

func TestPathConfigRoundTrip_PreservesKeyOrder(t *testing.T) {
	first, err := ParsePathConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParsePathConfig() error: %v", err)
	}

	out, err := MarshalPathConfig(first)
	if err != nil {
		t.Fatalf("MarshalPathConfig() error: %v", err)
	}

	// nodeTypes keys must keep declaration order, not alphabetical order.
	text := string(out)
	gateway := strings.Index(text, "gateway:")
	worker := strings.Index(text, "worker:")
	archive := strings.Index(text, "archive:")
	if gateway == -1 || worker == -1 || archive == -1 {
		t.Fatalf("output missing nodeType keys:\n%s", text)
	}
	if !(gateway < worker && worker < archive) {
		t.Errorf("nodeTypes re-sorted: gateway@%d worker@%d archive@%d\n%s", gateway, worker, archive, text)
	}

	second, err := ParsePathConfig(out)
	if err != nil {
		t.Fatalf("re-parse error: %v\noutput:\n%s", err, out)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed document:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestParse_DispatchByExtension(t *testing.T) {
	if _, err := Parse("vvf.config.yaml", []byte(sampleConfig)); err != nil {
		t.Errorf("Parse(yaml) error: %v", err)
	}
	if _, err := Parse("main.canvas", []byte(sampleCanvas)); err != nil {
		t.Errorf("Parse(canvas) error: %v", err)
	}
	if _, err := Parse("notes.txt", []byte("hi")); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("Parse(txt) code = %s, want PARSE_ERROR", errors.GetCode(err))
	}
}
