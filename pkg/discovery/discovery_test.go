package discovery

import (
	"reflect"
	"testing"
)

func record(rel string) FileRecord {
	return FileRecord{
		Path:         "/repo/" + rel,
		RelativePath: rel,
		Name:         rel[lastSlash(rel)+1:],
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func TestScan_Conventions(t *testing.T) {
	files := []FileRecord{
		record(".flowcanvas/order-flow.canvas"),
		record("packages/billing/traces/invoice-flow.canvas"),
		record("vvf.config.yaml"),
		record("src/main.go"),
		record("README.md"),
		record("packages/billing/src/index.ts"),
	}

	got := Scan(files)
	if len(got) != 3 {
		t.Fatalf("got %d configs, want 3: %+v", len(got), got)
	}

	byID := map[string]ConfigFile{}
	for _, c := range got {
		byID[c.ID] = c
	}

	if c, ok := byID["order-flow"]; !ok || c.Source != SourceConfigFolder {
		t.Errorf("order-flow = %+v, want config-folder match", c)
	}
	if c, ok := byID["billing/invoice-flow"]; !ok || c.Source != SourcePackageTraces || c.Namespace != "billing" {
		t.Errorf("billing/invoice-flow = %+v, want package-traces match", c)
	}
	if c, ok := byID["vvf"]; !ok || c.Source != SourceRootConfig {
		t.Errorf("vvf = %+v, want root-config match", c)
	}
}

func TestScan_DisplayNames(t *testing.T) {
	got := Scan([]FileRecord{record(".flowcanvas/order_intake-flow.canvas")})
	if len(got) != 1 {
		t.Fatalf("got %d configs, want 1", len(got))
	}
	if got[0].Name != "Order Intake Flow" {
		t.Errorf("Name = %q, want %q", got[0].Name, "Order Intake Flow")
	}
}

func TestScan_DisplayNamesMultibyte(t *testing.T) {
	got := Scan([]FileRecord{record(".flowcanvas/über-flow.canvas")})
	if len(got) != 1 {
		t.Fatalf("got %d configs, want 1", len(got))
	}
	if got[0].Name != "Über Flow" {
		t.Errorf("Name = %q, want %q", got[0].Name, "Über Flow")
	}
}

func TestScan_Ordering(t *testing.T) {
	files := []FileRecord{
		record("packages/zeta/traces/b.canvas"),
		record("packages/alpha/traces/z.canvas"),
		record(".flowcanvas/zz.canvas"),
		record(".flowcanvas/aa.canvas"),
		record("packages/alpha/traces/a.canvas"),
	}

	got := Scan(files)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}

	// Un-namespaced first (by name), then namespaces alphabetically.
	want := []string{"aa", "zz", "alpha/a", "alpha/z", "zeta/b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestScan_Deterministic(t *testing.T) {
	files := []FileRecord{
		record("packages/billing/traces/invoice-flow.canvas"),
		record(".flowcanvas/order-flow.canvas"),
		record("vvf.config.yaml"),
	}

	first := Scan(files)
	second := Scan(files)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-scan changed results:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	// Adding an unrelated file must not disturb existing identities.
	third := Scan(append([]FileRecord{record("docs/notes.md")}, files...))
	if !reflect.DeepEqual(first, third) {
		t.Errorf("unrelated file changed results:\nfirst: %+v\nthird: %+v", first, third)
	}
}

func TestScan_Empty(t *testing.T) {
	if got := Scan(nil); got == nil || len(got) != 0 {
		t.Errorf("Scan(nil) = %v, want empty non-nil slice", got)
	}
	if got := Scan([]FileRecord{record("src/main.go")}); len(got) != 0 {
		t.Errorf("Scan(no matches) = %v, want empty", got)
	}
}

func TestScan_DuplicateIDsDeduplicated(t *testing.T) {
	files := []FileRecord{
		record(".flowcanvas/flow.canvas"),
		record(".flowcanvas/flow.yaml"),
	}
	got := Scan(files)
	if len(got) != 1 {
		t.Errorf("got %d configs, want 1 after dedup: %+v", len(got), got)
	}
}
