package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/span"
)

func TestScannerIdent(t *testing.T) {
	s := newScanner([]byte("foo_bar123 next"))
	text, start, end, escaped, ok := s.scanIdent()
	require.True(t, ok)
	require.False(t, escaped)
	require.Equal(t, "foo_bar123", text)
	require.Equal(t, 0, start)
	require.Equal(t, 10, end)
}

func TestScannerEscapedIdent(t *testing.T) {
	s := newScanner([]byte(`\weird$name more`))
	text, _, _, escaped, ok := s.scanIdent()
	require.True(t, ok)
	require.True(t, escaped)
	require.Equal(t, `weird$name`, text)
	// the one terminating space should have been consumed
	require.Equal(t, 'm', s.peek())
}

func TestScannerSkipTrivia(t *testing.T) {
	s := newScanner([]byte("   // a comment\n/* block */ module"))
	s.skipTrivia()
	require.True(t, s.peekKeyword("module"))
}

func newPP(files map[string]string) *Preprocessor {
	pp := NewPreprocessor(nil, nil)
	pp.ReadFile = func(path string) ([]byte, error) {
		src, ok := files[path]
		if !ok {
			return nil, &PreprocessError{Path: path, Msg: "no such file"}
		}
		return []byte(src), nil
	}
	return pp
}

func TestPreprocessorDefineSubstitution(t *testing.T) {
	pp := newPP(map[string]string{
		"top.sv": "`define WIDTH 8\nmodule m(); logic [`WIDTH-1:0] x; endmodule\n",
	})
	out, err := pp.Process("top.sv")
	require.NoError(t, err)
	require.Contains(t, string(out), "[8-1:0]")
}

func TestPreprocessorIfdef(t *testing.T) {
	pp := newPP(map[string]string{
		"top.sv": "`define FOO\n`ifdef FOO\nmodule a(); endmodule\n`else\nmodule b(); endmodule\n`endif\n",
	})
	out, err := pp.Process("top.sv")
	require.NoError(t, err)
	require.Contains(t, string(out), "module a")
	require.NotContains(t, string(out), "module b")
}

func TestPreprocessorIfndefElse(t *testing.T) {
	pp := newPP(map[string]string{
		"top.sv": "`ifndef FOO\nmodule b(); endmodule\n`else\nmodule a(); endmodule\n`endif\n",
	})
	out, err := pp.Process("top.sv")
	require.NoError(t, err)
	require.Contains(t, string(out), "module b")
	require.NotContains(t, string(out), "module a")
}

func TestPreprocessorUnterminatedIfdef(t *testing.T) {
	pp := newPP(map[string]string{"top.sv": "`ifdef FOO\nmodule a(); endmodule\n"})
	_, err := pp.Process("top.sv")
	require.Error(t, err)
}

func TestPreprocessorInclude(t *testing.T) {
	pp := newPP(map[string]string{
		"top.sv":  "`include \"inc.svh\"\nmodule m(); endmodule\n",
		"inc.svh": "`define W 4\n",
	})
	out, err := pp.Process("top.sv")
	require.NoError(t, err)
	require.Contains(t, string(out), "module m")
}

func TestParseModuleDecl(t *testing.T) {
	src := []byte("module top(input clk, output rst); sub u_sub(.clk(clk), .rst(rst)); endmodule\n")
	file, err := Parse("top.sv", span.FileID(0), src)
	require.NoError(t, err)
	require.Len(t, file.Decls, 1)

	mod, ok := file.Decls[0].(*ast.ModuleDecl)
	require.True(t, ok)
	require.Equal(t, "top", mod.DeclName().Name)
	require.Len(t, mod.Ports, 2)

	var inst *ast.ModuleInstantiation
	for _, it := range mod.Items {
		if i, ok := it.(*ast.ModuleInstantiation); ok {
			inst = i
		}
	}
	require.NotNil(t, inst)
	require.Equal(t, "sub", inst.Target.Name)
	require.Len(t, inst.ExplicitPorts, 2)
}

func TestParseDotStarInstantiation(t *testing.T) {
	src := []byte("module top(); sub u_sub(.*); endmodule\n")
	file, err := Parse("top.sv", span.FileID(0), src)
	require.NoError(t, err)
	mod := file.Decls[0].(*ast.ModuleDecl)
	inst := mod.Items[0].(*ast.ModuleInstantiation)
	require.NotNil(t, inst.Wildcard)
}

func TestParseInterfaceDecl(t *testing.T) {
	src := []byte("interface my_ifc(); logic valid; endinterface\n")
	file, err := Parse("ifc.sv", span.FileID(0), src)
	require.NoError(t, err)
	ifc, ok := file.Decls[0].(*ast.InterfaceDecl)
	require.True(t, ok)
	require.Equal(t, ast.KindInterface, ifc.Kind())
}

func TestParsePackageDeclAndImport(t *testing.T) {
	src := []byte("package pkg; typedef int my_t; endpackage\nimport pkg::*;\nmodule m(); endmodule\n")
	file, err := Parse("pkg.sv", span.FileID(0), src)
	require.NoError(t, err)

	var sawPkg, sawMod bool
	for _, d := range file.Decls {
		switch d.(type) {
		case *ast.PackageDecl:
			sawPkg = true
		case *ast.ModuleDecl:
			sawMod = true
		}
	}
	require.True(t, sawPkg)
	require.True(t, sawMod)
	require.Len(t, file.GlobalImports, 1)
	require.Equal(t, "pkg", file.GlobalImports[0].Target.Name)
}

func TestParseMacroAndTimeunitsItems(t *testing.T) {
	src := []byte("module m(); `define FOO 1\ntimeunit 1ns/1ps; endmodule\n")
	file, err := Parse("m.sv", span.FileID(0), src)
	require.NoError(t, err)

	mod := file.Decls[0].(*ast.ModuleDecl)
	var sawMacro, sawTimeunits bool
	for _, it := range mod.Items {
		switch it.(type) {
		case *ast.TextMacroDefinition:
			sawMacro = true
		case *ast.TimeunitsDeclaration:
			sawTimeunits = true
		}
	}
	require.True(t, sawMacro)
	require.True(t, sawTimeunits)
}

func TestParseClassVsPackageScopeHeuristic(t *testing.T) {
	src := []byte("module m(); pkg::item_t x; MyClass::member y; endmodule\n")
	file, err := Parse("m.sv", span.FileID(0), src)
	require.NoError(t, err)

	mod := file.Decls[0].(*ast.ModuleDecl)
	var sawPkgScope, sawClassScope bool
	for _, it := range mod.Items {
		switch it.(type) {
		case *ast.PackageScope:
			sawPkgScope = true
		case *ast.ClassScope:
			sawClassScope = true
		}
	}
	require.True(t, sawPkgScope)
	require.True(t, sawClassScope)
}

func TestParseFileReportsReadFailure(t *testing.T) {
	_, err := ParseFile("does-not-exist.sv", 0, nil, Defines{}, false)
	require.Error(t, err)
}

func TestStripCommentBytesPreservesOffsetsAndNewlines(t *testing.T) {
	src := []byte("a // comment\nb /* block\nspanning */ c\n")
	out := stripCommentBytes(src)
	require.Len(t, out, len(src))
	require.NotContains(t, string(out), "comment")
	require.NotContains(t, string(out), "spanning")
	require.True(t, strings.Contains(string(out), "a "))
	require.True(t, strings.Contains(string(out), " c"))
}
