// Package index builds the declaration/usage tables the dependency graph
// is computed from (component C, the AST Indexer) and, on a usage that no
// bundle file declares, resolves it against a library search path
// (component D, the Library Resolver). The two are implemented in one
// package because D's output (newly parsed and indexed files) is fed
// straight back into C's tables, making them mutually recursive; splitting
// them into importing packages would require an import cycle.
package index

import (
	"path/filepath"
	"sort"

	art "github.com/kralicky/go-adaptive-radix-tree"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/span"
)

// Declaration records where a module/interface/package/class was declared.
type Declaration struct {
	Name string
	Kind ast.SvKind
	File span.FileID
	Path string
	Decl ast.Decl // nil for a Class "declaration" placeholder, never produced today
	Span span.Span
}

// Usage records one occurrence of a name being referenced, either as an
// instantiation target, a scope-resolution qualifier, or a package import.
type Usage struct {
	Name string
	Kind ast.SvKind // the kind implied by how the name was used
	File span.FileID
	Path string
	Node ast.Node
	Span span.Span
}

// Index holds every Declaration and Usage discovered across a bundle,
// keyed by name in an adaptive radix tree for deterministic, lexically
// sorted iteration (used by graph construction and manifest/DOT emission).
type Index struct {
	declByName art.Tree // string -> *Declaration
	usesByName art.Tree // string -> *[]*Usage

	// globalImports records, per file, the packages that file imports at
	// file scope (`import pkg::*;` outside any declaration). It is consumed
	// by graph.Build to add a dependency edge from every declaration in the
	// file to each such package - this is file-scope information, not a
	// per-declaration Usage, so it is kept separate from usesByName and
	// never seen by rewrite.Planner.Rename.
	globalImports map[span.FileID][]string

	Handler *reporter.Handler
}

func New(h *reporter.Handler) *Index {
	return &Index{declByName: art.New(), usesByName: art.New(), globalImports: map[span.FileID][]string{}, Handler: h}
}

// Declarations returns every declared name in lexical order.
func (ix *Index) Declarations() []*Declaration {
	var out []*Declaration
	ix.declByName.ForEach(func(node art.Node) bool {
		out = append(out, node.Value().(*Declaration))
		return true
	})
	return out
}

// Declaration looks up a declared name, returning nil if absent.
func (ix *Index) Declaration(name string) *Declaration {
	if v, ok := ix.declByName.Search(art.Key(name)); ok {
		return v.(*Declaration)
	}
	return nil
}

// Usages returns every recorded usage of name, in the order registered.
func (ix *Index) Usages(name string) []*Usage {
	if v, ok := ix.usesByName.Search(art.Key(name)); ok {
		return *(v.(*[]*Usage))
	}
	return nil
}

// Names returns every name that has either a declaration or a usage, in
// lexical order; this is the node set the dependency graph is built over.
func (ix *Index) Names() []string {
	set := map[string]struct{}{}
	ix.declByName.ForEach(func(node art.Node) bool {
		set[string(node.Key())] = struct{}{}
		return true
	})
	ix.usesByName.ForEach(func(node art.Node) bool {
		set[string(node.Key())] = struct{}{}
		return true
	})
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (ix *Index) addUsage(u *Usage) {
	key := art.Key(u.Name)
	if v, ok := ix.usesByName.Search(key); ok {
		list := v.(*[]*Usage)
		*list = append(*list, u)
		return
	}
	list := []*Usage{u}
	ix.usesByName.Insert(key, &list)
}

// AddFile walks file's tree and registers every declaration and usage it
// contains. path and id identify the file the spans are relative to, for
// diagnostics and for the graph/rewrite stages downstream. A duplicate
// declaration is reported as a hard error through ix.Handler.
func (ix *Index) AddFile(path string, id span.FileID, file *ast.FileNode) error {
	for _, d := range file.Decls {
		if err := ix.registerDecl(path, id, d); err != nil {
			return err
		}
	}
	globalNames := make([]string, 0, len(file.GlobalImports))
	for _, gi := range file.GlobalImports {
		ix.addUsage(&Usage{Name: gi.Target.Name, Kind: ast.KindPackage, File: id, Path: path, Node: gi, Span: gi.Span()})
		globalNames = append(globalNames, gi.Target.Name)
	}
	if len(globalNames) > 0 {
		ix.globalImports[id] = globalNames
	}
	for _, d := range file.Decls {
		ix.registerUsagesIn(path, id, d)
	}
	return nil
}

// GlobalImports returns the packages file imports at file scope, i.e. the
// names graph.Build adds an edge to from every declaration in the file.
func (ix *Index) GlobalImports(file span.FileID) []string {
	return ix.globalImports[file]
}

func (ix *Index) registerDecl(path string, id span.FileID, d ast.Decl) error {
	name := d.DeclName().Name
	key := art.Key(name)
	if existing, ok := ix.declByName.Search(key); ok {
		prev := existing.(*Declaration)
		pos := span.Pos{}
		return ix.Handler.HandleError(reporter.Error(path, pos, &reporter.DuplicateDeclarationError{
			Name:         name,
			Path:         path,
			PreviousPath: prev.Path,
		}))
	}
	ix.declByName.Insert(key, &Declaration{Name: name, Kind: d.Kind(), File: id, Path: path, Decl: d, Span: d.HeaderSpan()})
	if _, ok := ix.usesByName.Search(key); !ok {
		var empty []*Usage
		ix.usesByName.Insert(key, &empty)
	}
	return nil
}

// registerUsagesIn walks one declaration's body, registering every
// instantiation, scope-resolution, and in-body import usage it contains.
// File-scope package imports are not recorded here - see
// (*Index).GlobalImports and graph.Build.
func (ix *Index) registerUsagesIn(path string, id span.FileID, d ast.Decl) {
	ast.Inspect(d, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.ModuleInstantiation:
			kind := ast.KindModule
			if decl := ix.Declaration(v.Target.Name); decl != nil && decl.Kind == ast.KindInterface {
				kind = ast.KindInterface
			}
			ix.recordUsage(path, id, v.Target.Name, kind, v, v.InstSpan)
		case *ast.InterfaceInstantiation:
			ix.recordUsage(path, id, v.Target.Name, ast.KindInterface, v, v.InstSpan)
		case *ast.InterfacePortHeader:
			ix.recordUsage(path, id, v.Target.Name, ast.KindInterface, v, v.HeaderSpan)
		case *ast.PackageImportItem:
			ix.recordUsage(path, id, v.Target.Name, ast.KindPackage, v, v.ImportSpan)
		case *ast.PackageScope:
			ix.recordUsage(path, id, v.Target.Name, ast.KindPackage, v, v.ScopeSpan)
		case *ast.ClassScope:
			ix.recordUsage(path, id, v.Target.Name, ast.KindClass, v, v.ScopeSpan)
		}
		return true
	})
}

func (ix *Index) recordUsage(path string, id span.FileID, name string, kind ast.SvKind, node ast.Node, sp span.Span) {
	if decl := ix.Declaration(name); decl != nil && decl.Kind != kind {
		ix.Handler.HandleWarning(reporter.Error(path, span.Pos{}, &reporter.TypeMismatchWarning{
			Name: name, Declared: decl.Kind.String(), Used: kind.String(),
		}))
	}
	ix.addUsage(&Usage{Name: name, Kind: kind, File: id, Path: path, Node: node, Span: sp})
}

// StripExt strips a library filename's extension to get its expected
// module name, per the "library files are named module_name.v/.sv" rule.
func StripExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
