package reconcile

import (
	"reflect"
	"testing"

	"github.com/flowcanvas/flowcanvas/pkg/document"
)

func doc(nodes []string, edges ...document.Edge) *document.Document {
	d := &document.Document{Name: "test", Version: "1"}
	for _, id := range nodes {
		d.Nodes = append(d.Nodes, document.Node{ID: id, Width: 100, Height: 50})
	}
	d.Edges = edges
	return d
}

func edge(id, from, to, typ string) document.Edge {
	return document.Edge{ID: id, FromNode: from, ToNode: to, Type: typ}
}

func TestApply_DoesNotMutateOriginal(t *testing.T) {
	original := doc([]string{"a", "b"}, edge("e1", "a", "b", "flow"))
	before := original.Clone()

	_, err := Apply(original, Changes{
		Positions:      []PositionChange{{NodeID: "a", Position: Position{X: 10, Y: 20}}},
		DeletedNodeIDs: []string{"b"},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if !reflect.DeepEqual(original, before) {
		t.Errorf("Apply mutated the original document:\nbefore: %+v\nafter:  %+v", before, original)
	}
}

func TestApply_Positions(t *testing.T) {
	original := doc([]string{"a", "b"})

	got, err := Apply(original, Changes{
		Positions: []PositionChange{
			{NodeID: "a", Position: Position{X: 100, Y: 200}},
			{NodeID: "missing", Position: Position{X: 1, Y: 1}}, // tolerated no-op
		},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if got.Nodes[0].X != 100 || got.Nodes[0].Y != 200 {
		t.Errorf("node a at (%d,%d), want (100,200)", got.Nodes[0].X, got.Nodes[0].Y)
	}
	if got.Display.Layout != document.LayoutManual {
		t.Errorf("display.layout = %q, want manual after position change", got.Display.Layout)
	}
}

func TestApply_NoPositions_LayoutUntouched(t *testing.T) {
	original := doc([]string{"a"})
	original.Display.Layout = document.LayoutAuto

	got, err := Apply(original, Changes{
		Dimensions: []DimensionChange{{NodeID: "a", Dimensions: Dimensions{Width: 300, Height: 80}}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if got.Nodes[0].Width != 300 || got.Nodes[0].Height != 80 {
		t.Errorf("node box = %dx%d, want 300x80", got.Nodes[0].Width, got.Nodes[0].Height)
	}
	if got.Display.Layout != document.LayoutAuto {
		t.Errorf("display.layout = %q, want auto to stay", got.Display.Layout)
	}
}

func TestApply_RenamePropagation(t *testing.T) {
	original := doc([]string{"A", "B"}, edge("e1", "A", "B", "flow"))

	got, err := Apply(original, Changes{
		NodeUpdates: []NodeUpdate{{NodeID: "A", Type: "A2"}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if got.Nodes[0].ID != "A2" || got.Nodes[0].Ext.Type != "A2" {
		t.Errorf("node = %+v, want renamed to A2", got.Nodes[0])
	}
	if got.Edges[0].FromNode != "A2" || got.Edges[0].ToNode != "B" {
		t.Errorf("edge = %s->%s, want A2->B", got.Edges[0].FromNode, got.Edges[0].ToNode)
	}
	for _, e := range got.Edges {
		if e.FromNode == "A" || e.ToNode == "A" {
			t.Errorf("edge still references old id A: %+v", e)
		}
	}
}

func TestApply_RenameCollisionSkipped(t *testing.T) {
	original := doc([]string{"A", "B"})

	got, err := Apply(original, Changes{
		NodeUpdates: []NodeUpdate{{NodeID: "A", Type: "B", Data: &NodeData{Icon: "db"}}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// The colliding rename is dropped but the data merge still applies.
	if got.Nodes[0].ID != "A" {
		t.Errorf("node id = %q, want rename skipped", got.Nodes[0].ID)
	}
	if got.Nodes[0].Ext.Icon != "db" {
		t.Errorf("icon = %q, want db", got.Nodes[0].Ext.Icon)
	}
}

func TestApply_UpdateMergesFields(t *testing.T) {
	original := doc([]string{"a"})
	original.Nodes[0].Ext = document.NodeExt{Icon: "server", Label: "Ingest"}

	got, err := Apply(original, Changes{
		NodeUpdates: []NodeUpdate{{NodeID: "a", Data: &NodeData{Label: "Intake"}}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// Merge, not replace: untouched fields survive.
	if got.Nodes[0].Ext.Icon != "server" {
		t.Errorf("icon = %q, want server preserved", got.Nodes[0].Ext.Icon)
	}
	if got.Nodes[0].Ext.Label != "Intake" {
		t.Errorf("label = %q, want Intake", got.Nodes[0].Ext.Label)
	}
}

func TestApply_CascadeDeletion(t *testing.T) {
	original := doc([]string{"A", "B", "C"},
		edge("e1", "A", "B", "flow"),
		edge("e2", "B", "C", "flow"),
	)

	got, err := Apply(original, Changes{DeletedNodeIDs: []string{"B"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	var ids []string
	for _, n := range got.Nodes {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"A", "C"}) {
		t.Errorf("nodes = %v, want [A C]", ids)
	}
	if len(got.Edges) != 0 {
		t.Errorf("edges = %+v, want none after cascade", got.Edges)
	}
}

func TestApply_DeletionBeforeCreation(t *testing.T) {
	original := doc([]string{"A", "B"}, edge("e1", "A", "B", "flow"))

	got, err := Apply(original, Changes{
		DeletedEdges: []EdgeDelete{{From: "A", To: "B", Type: "flow"}},
		CreatedEdges: []EdgeCreate{{From: "A", To: "B", Type: "flow"}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if len(got.Edges) != 1 {
		t.Fatalf("got %d edges, want exactly 1", len(got.Edges))
	}
	e := got.Edges[0]
	if e.FromNode != "A" || e.ToNode != "B" || e.Type != "flow" {
		t.Errorf("surviving edge = %+v", e)
	}
	if e.ID == "e1" || e.ID == "" {
		t.Errorf("surviving edge id = %q, want a fresh id", e.ID)
	}
}

func TestApply_CreateIdempotent(t *testing.T) {
	original := doc([]string{"A", "B"}, edge("e1", "A", "B", "flow"))

	got, err := Apply(original, Changes{
		CreatedEdges: []EdgeCreate{
			{From: "A", To: "B", Type: "flow"}, // identical triple exists
			{From: "B", To: "A", Type: "flow"},
			{From: "B", To: "A", Type: "flow"}, // duplicate within the batch
		},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if len(got.Edges) != 2 {
		t.Errorf("got %d edges, want 2: %+v", len(got.Edges), got.Edges)
	}
}

func TestApply_HandleMapping(t *testing.T) {
	original := doc([]string{"A", "B"})

	got, err := Apply(original, Changes{
		CreatedEdges: []EdgeCreate{{
			From:         "A",
			To:           "B",
			Type:         "flow",
			SourceHandle: "right-out",
			TargetHandle: "left",
		}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	e := got.Edges[0]
	if e.FromSide != document.SideRight {
		t.Errorf("fromSide = %q, want right", e.FromSide)
	}
	if e.ToSide != document.SideLeft {
		t.Errorf("toSide = %q, want left", e.ToSide)
	}
}

func TestApply_UnknownHandleUnanchored(t *testing.T) {
	original := doc([]string{"A", "B"})

	got, err := Apply(original, Changes{
		CreatedEdges: []EdgeCreate{{From: "A", To: "B", SourceHandle: "handle-7"}},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got.Edges[0].FromSide != "" {
		t.Errorf("fromSide = %q, want empty for unknown handle", got.Edges[0].FromSide)
	}
}

func TestApply_UniqueEdgeIDs(t *testing.T) {
	original := doc([]string{"A", "B", "C"})

	got, err := Apply(original, Changes{
		CreatedEdges: []EdgeCreate{
			{From: "A", To: "B", Type: "flow"},
			{From: "B", To: "C", Type: "flow"},
			{From: "A", To: "C", Type: "flow"},
		},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range got.Edges {
		if seen[e.ID] {
			t.Errorf("duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestApply_EmptyBatch(t *testing.T) {
	original := doc([]string{"a"})

	got, err := Apply(original, Changes{})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !reflect.DeepEqual(got.Nodes, original.Nodes) || !reflect.DeepEqual(got.Edges, original.Edges) {
		t.Error("empty batch should leave the document unchanged")
	}
	if !(Changes{}).Empty() {
		t.Error("Changes{}.Empty() = false, want true")
	}
}
