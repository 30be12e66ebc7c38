// Package emit produces the pickler's output artifacts: the concatenated
// SystemVerilog source (classic or topological order), the JSON manifest,
// and the Graphviz dependency graph.
package emit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pulp-platform/svpickle/graph"
	"github.com/pulp-platform/svpickle/index"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/rewrite"
	"github.com/pulp-platform/svpickle/span"
)

// bannerFmt is the format of the comment line written at the top of every pickled output,
// mirroring the original implementation's "Compiled by morty-<version>"
// line.
const bannerFmt = "// Compiled by svpickle / %s\n\n"

// Options configures a single emission pass.
type Options struct {
	Exclude     map[string]bool // declared names to omit entirely from output
	Topological bool            // false = classic (input) order, true = dependency order
	Now         time.Time       // banner timestamp; callers supply it since this package never calls time.Now()
}

// Emit renders the pickled SystemVerilog source for g using ix to look up
// each surviving declaration's bytes and planner to apply any
// rename/strip/expand edits planned for it.
func Emit(files *span.Set, ix *index.Index, g *graph.Graph, planner *rewrite.Planner, h *reporter.Handler, opt Options) ([]byte, error) {
	var order []string
	var err error
	if opt.Topological {
		order, err = g.TopologicalOrder()
		if err != nil {
			return nil, err
		}
	} else {
		order = classicOrder(ix, g)
	}

	var out strings.Builder
	fmt.Fprintf(&out, bannerFmt, opt.Now.Format(time.RFC3339))
	for _, name := range order {
		if opt.Exclude[name] {
			continue
		}
		decl := ix.Declaration(name)
		if decl == nil {
			continue
		}
		text, err := renderSpan(files, planner, h, decl.Path, decl.File, decl.Span)
		if err != nil {
			return nil, err
		}
		out.WriteString(text)
	}
	return []byte(out.String()), nil
}

// classicOrder returns declared names in the order their files were added
// to the span set, and within a file, in source order — matching the
// original implementation's get_classic_pickle, which simply walks
// all_files in registration order rather than computing a topological
// sort.
func classicOrder(ix *index.Index, g *graph.Graph) []string {
	decls := ix.Declarations()
	order := make([]string, 0, len(decls))
	for _, d := range decls {
		if g.Node(d.Name) != nil {
			order = append(order, d.Name)
		}
	}
	// Stable sort by (file id, offset) to get source order across files
	// added in file-id order; Declarations() is already name-sorted so
	// this reorders it into emission order.
	sortBySourcePos(order, ix)
	return order
}

func sortBySourcePos(names []string, ix *index.Index) {
	sort.Slice(names, func(i, j int) bool {
		a, b := ix.Declaration(names[i]), ix.Declaration(names[j])
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Span.Offset < b.Span.Offset
	})
}

// renderSpan returns sp's text with every planned edit applied, followed
// by a guaranteed trailing newline.
func renderSpan(files *span.Set, planner *rewrite.Planner, h *reporter.Handler, path string, id span.FileID, sp span.Span) (string, error) {
	f := files.Get(id)
	edits, err := planner.EditsFor(path, id, h)
	if err != nil {
		return "", err
	}
	var relevant []rewrite.Edit
	for _, e := range edits {
		if e.Span.Offset >= sp.Offset && e.Span.End() <= sp.End() {
			relevant = append(relevant, e)
		}
	}
	raw := f.Text(sp)
	var out strings.Builder
	pos := sp.Offset
	for _, e := range relevant {
		out.WriteString(raw[pos-sp.Offset : e.Span.Offset-sp.Offset])
		out.WriteString(e.Replacement)
		pos = e.Span.End()
	}
	out.WriteString(raw[pos-sp.Offset:])
	result := out.String()
	if !strings.HasSuffix(result, "\n") {
		result += "\n"
	}
	return result, nil
}

// PreprocessOnly concatenates every file's preprocessed bytes verbatim,
// with no indexing, graph, or edit application — the --E / just-preprocess
// mode.
func PreprocessOnly(files *span.Set) []byte {
	var out strings.Builder
	for _, f := range files.All() {
		out.Write(f.Bytes())
		if !f.EndsWithNewline() {
			out.WriteByte('\n')
		}
	}
	return []byte(out.String())
}
