// Package discovery locates configuration files inside a host file tree.
//
// Discovery is convention-based: it matches file paths against known
// directory layouts rather than inspecting content. Three conventions are
// recognized:
//
//   - A dedicated hidden config folder (.flowcanvas/) at the repository root
//   - Per-package traces folders in a monorepo layout (packages/<pkg>/traces/)
//   - A root-level vvf.config.yaml
//
// The result is deterministic: scanning an unchanged file list twice yields
// identical IDs in identical order, so a "currently selected" config survives
// unrelated file additions.
package discovery

import (
	"path"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// Source tags identify which directory convention matched a config file.
const (
	SourceConfigFolder  = "config-folder"
	SourcePackageTraces = "package-traces"
	SourceRootConfig    = "root-config"
)

// FileRecord is a single entry of the host's file tree slice.
type FileRecord struct {
	Path         string // absolute path, used for reads and writes
	RelativePath string // path relative to the repository root
	Name         string // base name
}

// ConfigFile identifies a selectable configuration. ID is derived from the
// filename (namespaced by package for monorepo matches) and is stable across
// re-scans, so it can be used as a selection handle across reloads.
type ConfigFile struct {
	ID        string
	Name      string // human-readable, Title Cased from the file stem
	Path      string
	Source    string
	Namespace string // package name for package-traces matches, else empty
}

// convention pairs a doublestar pattern with its source tag.
type convention struct {
	pattern string
	source  string
}

var conventions = []convention{
	{".flowcanvas/**/*.canvas", SourceConfigFolder},
	{".flowcanvas/**/*.{yaml,yml}", SourceConfigFolder},
	{"packages/*/traces/*.canvas", SourcePackageTraces},
	{"packages/*/traces/*.{yaml,yml}", SourcePackageTraces},
	{"vvf.config.{yaml,yml}", SourceRootConfig},
}

// Scan filters the file records down to recognized configuration files.
//
// Empty input or no matches yields an empty (non-nil) slice and no error; the
// caller distinguishes "no configs" from "not yet scanned". Ordering policy:
// un-namespaced entries first, then namespaced groups alphabetically by
// namespace, ties broken by display name, then by ID.
func Scan(files []FileRecord) []ConfigFile {
	out := []ConfigFile{}
	seen := map[string]bool{}

	for _, f := range files {
		rel := normalize(f.RelativePath)
		if rel == "" {
			rel = normalize(f.Path)
		}

		for _, c := range conventions {
			ok, err := doublestar.Match(c.pattern, rel)
			if err != nil || !ok {
				continue
			}
			cfg := toConfig(f, rel, c.source)
			if !seen[cfg.ID] {
				seen[cfg.ID] = true
				out = append(out, cfg)
			}
			break
		}
	}

	slices.SortStableFunc(out, compare)
	return out
}

func toConfig(f FileRecord, rel, source string) ConfigFile {
	name := f.Name
	if name == "" {
		name = path.Base(rel)
	}

	cfg := ConfigFile{
		Path:   f.Path,
		Source: source,
	}
	if source == SourcePackageTraces {
		// packages/<pkg>/traces/<file>
		parts := strings.Split(rel, "/")
		if len(parts) >= 2 {
			cfg.Namespace = parts[1]
		}
	}

	slug := slugify(stem(name))
	if cfg.Namespace != "" {
		cfg.ID = slugify(cfg.Namespace) + "/" + slug
	} else {
		cfg.ID = slug
	}
	cfg.Name = titleCase(stem(name))
	return cfg
}

func compare(a, b ConfigFile) int {
	// Un-namespaced entries sort before namespaced ones.
	if (a.Namespace == "") != (b.Namespace == "") {
		if a.Namespace == "" {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
		return c
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func normalize(p string) string {
	return strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
}

// stem strips the file extension, treating .config.yaml style suffixes as a
// single extension.
func stem(name string) string {
	base := path.Base(name)
	for _, suffix := range []string{".config.yaml", ".config.yml", ".canvas", ".yaml", ".yml"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// titleCase turns kebab-case or snake_case stems into display names:
// "order-flow" → "Order Flow".
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
