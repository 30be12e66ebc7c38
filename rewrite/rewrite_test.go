package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/index"
	"github.com/pulp-platform/svpickle/parser"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/span"
)

func buildIndex(t *testing.T, src string) (*index.Index, *ast.FileNode) {
	t.Helper()
	h := reporter.NewHandler(reporter.Reporter{})
	ix := index.New(h)
	file, err := parser.Parse("t.sv", span.FileID(0), []byte(src))
	require.NoError(t, err)
	require.NoError(t, ix.AddFile("t.sv", 0, file))
	return ix, file
}

func TestRenamePlansDeclAndUsageEdits(t *testing.T) {
	ix, _ := buildIndex(t, "module top(); leaf u_leaf(); endmodule\nmodule leaf(); endmodule\n")
	p := NewPlanner()
	p.Rename(ix, "pfx_", "", nil)

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	// decl+usage for top (no usage, it's the top), decl+usage for leaf.
	require.GreaterOrEqual(t, len(edits), 3)
	var sawLeafRename int
	for _, e := range edits {
		if e.Replacement == "pfx_leaf" {
			sawLeafRename++
		}
	}
	require.Equal(t, 2, sawLeafRename) // declaration + one usage
}

func TestRenameRespectsExclude(t *testing.T) {
	ix, _ := buildIndex(t, "module top(); leaf u_leaf(); endmodule\nmodule leaf(); endmodule\n")
	p := NewPlanner()
	p.Rename(ix, "pfx_", "", map[string]bool{"leaf": true})

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	for _, e := range edits {
		require.NotEqual(t, "pfx_leaf", e.Replacement)
	}
}

func TestRenameWithGlobalImportDoesNotTouchDeclarationBody(t *testing.T) {
	// Regression test: a file-scope `import pkg::*;` must not cause Rename
	// to plan an edit over an importing declaration's entire header span -
	// the file-scope dependency is graph-only (index.Index.GlobalImports),
	// never an index.Usage, so renaming pkg must only touch the import
	// statement itself (plus its own declaration).
	ix, _ := buildIndex(t, "package pkg; endpackage\nimport pkg::*;\nmodule top(); endmodule\nmodule other(); endmodule\n")
	p := NewPlanner()
	p.Rename(ix, "pfx_", "", nil)

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)

	// One rename edit per declared name (pkg, top, other) plus one for the
	// import statement's package reference: no edit should ever replace
	// more than an identifier's worth of text.
	for _, e := range edits {
		require.LessOrEqual(t, e.Span.Length, len("other"))
	}
	var sawPkgRename int
	for _, e := range edits {
		if e.Replacement == "pfx_pkg" {
			sawPkgRename++
		}
	}
	require.Equal(t, 2, sawPkgRename) // declaration + import reference
}

func TestRenameNoopWhenPrefixAndSuffixEmpty(t *testing.T) {
	ix, _ := buildIndex(t, "module top(); endmodule\n")
	p := NewPlanner()
	p.Rename(ix, "", "", nil)

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Empty(t, edits)
}

func TestEditsForDetectsOverlap(t *testing.T) {
	p := NewPlanner()
	p.add(0, span.Span{Offset: 0, Length: 10}, "a")
	p.add(0, span.Span{Offset: 5, Length: 10}, "b")

	h := reporter.NewHandler(reporter.Reporter{})
	_, err := p.EditsFor("t.sv", 0, h)
	require.Error(t, err)
}

func TestEditsForSortsByOffset(t *testing.T) {
	p := NewPlanner()
	p.add(0, span.Span{Offset: 20, Length: 2}, "late")
	p.add(0, span.Span{Offset: 5, Length: 2}, "early")

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Equal(t, "early", edits[0].Replacement)
	require.Equal(t, "late", edits[1].Replacement)
}

func TestRemoveMacrosPlansDeletion(t *testing.T) {
	_, file := buildIndex(t, "module top(); `define FOO 1\nendmodule\n")
	p := NewPlanner()
	p.RemoveMacros(map[span.FileID]*ast.FileNode{0: file})

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Equal(t, "", edits[0].Replacement)
}

func TestRemoveTimeunitsPlansDeletion(t *testing.T) {
	_, file := buildIndex(t, "module top(); timeunit 1ns/1ps; endmodule\n")
	p := NewPlanner()
	p.RemoveTimeunits(map[span.FileID]*ast.FileNode{0: file})

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Equal(t, "", edits[0].Replacement)
}

func TestInferDotStarExpandsUnconnectedPorts(t *testing.T) {
	ix, file := buildIndex(t, "module sub(input clk, output rst); endmodule\nmodule top(); sub u_sub(.*); endmodule\n")
	p := NewPlanner()
	p.InferDotStar(ix, map[span.FileID]*ast.FileNode{0: file})

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Equal(t, ".clk(clk), .rst(rst)", edits[0].Replacement)
}

func TestInferDotStarSkipsAlreadyConnectedPorts(t *testing.T) {
	ix, file := buildIndex(t, "module sub(input clk, output rst); endmodule\nmodule top(); sub u_sub(.clk(clk), .*); endmodule\n")
	p := NewPlanner()
	p.InferDotStar(ix, map[span.FileID]*ast.FileNode{0: file})

	h := reporter.NewHandler(reporter.Reporter{})
	edits, err := p.EditsFor("t.sv", 0, h)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Equal(t, ".rst(rst)", edits[0].Replacement)
}
