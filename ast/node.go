// Package ast defines the syntax tree the pickle engine consumes. The real
// SystemVerilog lexer/preprocessor/parser is out of scope for this core
// (see package parser for the adapter that produces trees of this shape);
// this package only fixes the node vocabulary that the indexer, the
// dependency graph, and the rewrite planner are built against.
package ast

import "github.com/pulp-platform/svpickle/span"

// SvKind tags both declarations and usages so that mismatches between a
// declared construct and how it is referenced (e.g. a module used where a
// package was expected) can be detected.
type SvKind int

const (
	KindModule SvKind = iota
	KindInterface
	KindPackage
	KindClass
)

func (k SvKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindInterface:
		return "interface"
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Node is implemented by every node in the tree. Children returns the
// node's immediate descendants in source order; Walk uses it to perform a
// generic pre/post-order traversal without assuming any particular
// traversal framework, per the "single-pass AST traversal" design note:
// any traversal that exposes parent->child nesting is sufficient.
type Node interface {
	Span() span.Span
	Children() []Node
}

// Ident is a simple or escaped identifier token. NameSpan covers only the
// identifier token itself (never a type prefix or scope-resolution
// qualifier), which is what makes renaming non-overlapping across multiple
// occurrences inside one outer span.
type Ident struct {
	NameSpan span.Span
	Name     string
	Escaped  bool
}

func (id Ident) Span() span.Span     { return id.NameSpan }
func (id Ident) Children() []Node    { return nil }
