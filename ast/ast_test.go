package ast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulp-platform/svpickle/span"
)

func ident(name string, offset int) Ident {
	return Ident{Name: name, NameSpan: span.Span{Offset: offset, Length: len(name)}}
}

func TestModuleDeclShape(t *testing.T) {
	m := &ModuleDecl{
		Header: span.Span{Offset: 0, Length: 40},
		Name:   ident("top", 7),
		Ports: []PortDecl{
			{PortSpan: span.Span{Offset: 12, Length: 3}, Name: ident("clk", 12)},
		},
	}
	require.Equal(t, KindModule, m.Kind())
	require.Equal(t, "top", m.DeclName().Name)
	require.Equal(t, m.Span(), m.HeaderSpan())
	require.Len(t, m.Children(), 2) // name + 1 port
}

func TestSvKindString(t *testing.T) {
	cases := map[SvKind]string{
		KindModule:    "module",
		KindInterface: "interface",
		KindPackage:   "package",
		KindClass:     "class",
	}
	for k, want := range cases {
		require.Equal(t, want, k.String())
	}
	require.Equal(t, "unknown", SvKind(99).String())
}

// countingVisitor records every node's span offset visited, in order, to
// assert Walk performs a correct pre-order traversal over nested decls.
type countingVisitor struct {
	offsets []int
}

func (c *countingVisitor) Before(n Node) bool {
	c.offsets = append(c.offsets, n.Span().Offset)
	return true
}
func (c *countingVisitor) Visit(n Node) Visitor { return c }
func (c *countingVisitor) After(Node)           {}

func TestWalkPreOrder(t *testing.T) {
	inst := &ModuleInstantiation{
		InstSpan: span.Span{Offset: 20, Length: 10},
		Target:   ident("sub", 20),
	}
	mod := &ModuleDecl{
		Header: span.Span{Offset: 0, Length: 40},
		Name:   ident("top", 7),
		Items:  []Node{inst},
	}
	file := &FileNode{FileSpan: span.Span{Offset: 0, Length: 40}, Decls: []Decl{mod}}

	var v countingVisitor
	Walk(&v, file)

	// file, mod, mod.Name, inst, inst.Target
	require.Equal(t, []int{0, 0, 7, 20, 20}, v.offsets)
}

func TestWalkPruneOnFalseVisit(t *testing.T) {
	inst := &ModuleInstantiation{InstSpan: span.Span{Offset: 5, Length: 1}, Target: ident("sub", 5)}
	mod := &ModuleDecl{Header: span.Span{Offset: 0, Length: 10}, Name: ident("top", 1), Items: []Node{inst}}

	var seen []int
	Inspect(mod, func(n Node) bool {
		seen = append(seen, n.Span().Offset)
		// Stop descending at the instantiation (offset 5), so its target is
		// never visited.
		return n.Span().Offset != 5
	})
	// top, top.Name, inst (pruned before inst.Target)
	require.Equal(t, []int{0, 1, 5}, seen)
}

func TestWalkNilSafety(t *testing.T) {
	require.NotPanics(t, func() { Walk(nil, nil) })
	var v countingVisitor
	require.NotPanics(t, func() { Walk(&v, nil) })
	require.Empty(t, v.offsets)
}

func TestBaseVisitorDefaults(t *testing.T) {
	type embedding struct{ BaseVisitor }
	e := embedding{}
	require.True(t, e.Before(nil))
	require.NotPanics(t, func() { e.After(nil) })
}
