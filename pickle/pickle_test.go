package pickle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulp-platform/svpickle/bundle"
	"github.com/pulp-platform/svpickle/reporter"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestPickleEndToEndClassicOrder(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, leaf}))
	p.BuildGraph()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "module top")
	require.Contains(t, string(out), "module leaf")
}

func TestPicklePruneGraphDropsUnreachable(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")
	unrelated := writeFile(t, dir, "unrelated.sv", "module unrelated(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, leaf, unrelated}))
	p.BuildGraph()
	require.NoError(t, p.PruneGraph("top"))

	out, err := p.Pickle(true, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.NotContains(t, string(out), "module unrelated")
	require.Contains(t, string(out), "module top")
}

func TestPickleRenameAppliesPrefix(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, leaf}))
	p.BuildGraph()
	p.Rename("pfx_", "", nil)

	out, err := p.Pickle(true, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "pfx_leaf")
	require.Contains(t, string(out), "pfx_top")
}

func TestPickleExcludeOmitsDeclaration(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, leaf}))
	p.BuildGraph()

	out, err := p.Pickle(false, map[string]bool{"leaf": true}, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.NotContains(t, string(out), "module leaf")
}

func TestPickleManifestReportsTopsAndUndefined(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); mid u_mid(); endmodule\n")
	mid := writeFile(t, dir, "mid.sv", "module mid(); missing u_missing(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, mid}))
	p.BuildGraph()

	m := p.Manifest(nil, nil, nil)
	require.Equal(t, []string{"top"}, m.Tops)
	require.Equal(t, []string{"missing"}, m.Undefined)
}

func TestPickleDotRendersGraph(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top, leaf}))
	p.BuildGraph()

	dot := string(p.Dot())
	require.Contains(t, dot, `"top" -> "leaf"`)
}

func TestPickleRemoveMacrosAndTimeunits(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); `define FOO 1\ntimeunit 1ns/1ps; endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top}))
	p.BuildGraph()
	p.RemoveMacros()
	p.RemoveTimeunits()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.NotContains(t, string(out), "`define")
	require.NotContains(t, string(out), "timeunit")
}

func TestPickleInferDotStar(t *testing.T) {
	dir := t.TempDir()
	sub := writeFile(t, dir, "sub.sv", "module sub(input clk); endmodule\n")
	top := writeFile(t, dir, "top.sv", "module top(); sub u_sub(.*); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{sub, top}))
	p.BuildGraph()
	p.InferDotStar()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), ".clk(clk)")
}

func TestPickleLibraryResolution(t *testing.T) {
	dir := t.TempDir()
	libDir := t.TempDir()
	writeFile(t, libDir, "leaf.sv", "module leaf(); endmodule\n")
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddLibs([]string{libDir}, nil))
	require.NoError(t, p.AddFiles(context.Background(), []string{top}))
	p.BuildGraph()

	require.NotNil(t, p.Index.Declaration("leaf"))

	out, err := p.Pickle(true, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "module leaf")
}

func TestPickleAddFilesPropagatesDefinesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	// first.sv defines W with no corresponding -D; second.sv relies on W
	// having been carried forward from first.sv rather than redefining it.
	first := writeFile(t, dir, "first.sv", "`define W 8\nmodule first(); endmodule\n")
	second := writeFile(t, dir, "second.sv", "module second(); logic [`W-1:0] x; endmodule\n")

	p := New(Config{PropagateDefines: true, Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{first, second}))
	p.BuildGraph()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "[8-1:0]")
}

func TestPickleAddFilesWithoutPropagateDefinesDoesNotCarryMacros(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.sv", "`define W 8\nmodule first(); endmodule\n")
	second := writeFile(t, dir, "second.sv", "module second(); logic [`W-1:0] x; endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{first, second}))
	p.BuildGraph()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "[`W-1:0]")
}

func TestPickleAddBundlesUsesPerBundleDefines(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	a := writeFile(t, dirA, "a.sv", "module a(); logic [`W-1:0] x; endmodule\n")
	b := writeFile(t, dirB, "b.sv", "module b(); logic [`W-1:0] x; endmodule\n")
	wA, wB := "4", "16"

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddBundles(context.Background(), []bundle.FileBundle{
		{Defines: map[string]*string{"W": &wA}, Files: []string{a}},
		{Defines: map[string]*string{"W": &wB}, Files: []string{b}},
	}))
	p.BuildGraph()

	out, err := p.Pickle(false, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	// Each bundle's own defines apply only to its own files, never leaking
	// into a sibling bundle parsed against a different define table.
	require.Contains(t, string(out), "[4-1:0]")
	require.Contains(t, string(out), "[16-1:0]")
}

func TestPickleAddBundlesAfterAddFilesKeepsFileIdsUnique(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "module top(); leaf u_leaf(); endmodule\n")
	leaf := writeFile(t, dir, "leaf.sv", "module leaf(); endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top}))
	require.NoError(t, p.AddBundles(context.Background(), []bundle.FileBundle{
		{Files: []string{leaf}},
	}))
	p.BuildGraph()

	out, err := p.Pickle(true, nil, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(out), "module top")
	require.Contains(t, string(out), "module leaf")
}

func TestPreprocessOnlyMode(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.sv", "`define W 8\nmodule top(); logic [`W-1:0] x; endmodule\n")

	p := New(Config{Reporter: reporter.Reporter{}})
	require.NoError(t, p.AddFiles(context.Background(), []string{top}))

	out := p.PreprocessOnly()
	require.Contains(t, string(out), "[8-1:0]")
}
