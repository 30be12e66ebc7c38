// Package rewrite plans the source-to-source edits the emitter applies
// (component F): renames, macro/timeunit stripping, and `.*` port
// expansion. Exclusion is not an edit here; the emitter skips excluded
// declarations by name. Every edit is a (file, byte span, replacement text)
// triple; nothing here mutates the AST or re-prints source, matching the
// span-based rewrite model the whole pipeline is built on.
package rewrite

import (
	"sort"
	"strings"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/index"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/span"
)

// Edit is one planned replacement: the bytes in [Span.Offset, Span.End())
// of file File are replaced with Replacement.
type Edit struct {
	File        span.FileID
	Span        span.Span
	Replacement string
}

// Planner accumulates edits across every operation requested of the
// pickle orchestrator (Rename, RemoveMacros, RemoveTimeunits,
// InferDotStar) and is handed to the emitter once all operations have run.
type Planner struct {
	edits map[span.FileID][]Edit
}

func NewPlanner() *Planner {
	return &Planner{edits: map[span.FileID][]Edit{}}
}

func (p *Planner) add(file span.FileID, sp span.Span, replacement string) {
	p.edits[file] = append(p.edits[file], Edit{File: file, Span: sp, Replacement: replacement})
}

// EditsFor returns the edits planned for file, sorted by offset and
// checked for overlap; an overlap is reported as a hard EditOverlapError
// through h rather than silently dropped (an explicit divergence from the
// original implementation, which left the equivalent case unimplemented).
func (p *Planner) EditsFor(path string, file span.FileID, h *reporter.Handler) ([]Edit, error) {
	edits := append([]Edit(nil), p.edits[file]...)
	sort.Slice(edits, func(i, j int) bool { return edits[i].Span.Offset < edits[j].Span.Offset })
	for i := 1; i < len(edits); i++ {
		if edits[i-1].Span.End() > edits[i].Span.Offset {
			err := h.HandleError(reporter.Error(path, span.Pos{}, &reporter.EditOverlapError{
				Path: path, First: edits[i-1].Span, Second: edits[i].Span,
			}))
			return nil, err
		}
	}
	return edits, nil
}

// Rename plans a rename of every declaration (and each of its usages) to
// prefix+name+suffix, skipping any name in exclude. It mirrors the
// original implementation's identifier-token-only rename spans: only the
// declared/used identifier itself is replaced, never a surrounding type
// prefix or scope-resolution qualifier.
func (p *Planner) Rename(ix *index.Index, prefix, suffix string, exclude map[string]bool) {
	if prefix == "" && suffix == "" {
		return
	}
	for _, name := range ix.Names() {
		if exclude[name] {
			continue
		}
		decl := ix.Declaration(name)
		if decl == nil {
			continue
		}
		newName := prefix + name + suffix
		p.add(decl.File, decl.Decl.DeclName().Span(), newName)
		for _, u := range ix.Usages(name) {
			p.add(u.File, identSpan(u.Node, name), newName)
		}
	}
}

// identSpan returns the span of the identifier token that names the
// reference inside n, falling back to n's own span for usage nodes whose
// Target is the whole node (Ident values already carry the narrow span).
func identSpan(n ast.Node, name string) span.Span {
	switch v := n.(type) {
	case *ast.ModuleInstantiation:
		return v.Target.Span()
	case *ast.InterfaceInstantiation:
		return v.Target.Span()
	case *ast.InterfacePortHeader:
		return v.Target.Span()
	case *ast.PackageImportItem:
		return v.Target.Span()
	case *ast.PackageImportDecl:
		return v.Target.Span()
	case *ast.PackageScope:
		return v.Target.Span()
	case *ast.ClassScope:
		return v.Target.Span()
	}
	return n.Span()
}

// RemoveMacros plans deletion of every `` `define`` directive span found
// across the bundle.
func (p *Planner) RemoveMacros(files map[span.FileID]*ast.FileNode) {
	for id, f := range files {
		for _, d := range f.Decls {
			ast.Inspect(d, func(n ast.Node) bool {
				if m, ok := n.(*ast.TextMacroDefinition); ok {
					p.add(id, m.DefSpan, "")
				}
				return true
			})
		}
	}
}

// RemoveTimeunits plans deletion of every `timeunit`/`timeprecision`
// declaration span found across the bundle.
func (p *Planner) RemoveTimeunits(files map[span.FileID]*ast.FileNode) {
	for id, f := range files {
		for _, d := range f.Decls {
			ast.Inspect(d, func(n ast.Node) bool {
				if t, ok := n.(*ast.TimeunitsDeclaration); ok {
					p.add(id, t.DeclSpan, "")
				}
				return true
			})
		}
	}
}

// InferDotStar plans replacement of every `.*` wildcard connection with
// explicit `.port(port)` connections for every port of the instantiated
// module not already connected explicitly, in declaration order, joined
// by ", " with no trailing comma.
func (p *Planner) InferDotStar(ix *index.Index, files map[span.FileID]*ast.FileNode) {
	for id, f := range files {
		for _, d := range f.Decls {
			ast.Inspect(d, func(n ast.Node) bool {
				inst, ok := n.(*ast.ModuleInstantiation)
				if !ok || inst.Wildcard == nil {
					return true
				}
				decl := ix.Declaration(inst.Target.Name)
				if decl == nil {
					return true
				}
				ports := declPorts(decl.Decl)
				already := map[string]bool{}
				for _, ep := range inst.ExplicitPorts {
					already[ep.Name] = true
				}
				var parts []string
				for _, port := range ports {
					if already[port] {
						continue
					}
					parts = append(parts, "."+port+"("+port+")")
				}
				p.add(id, inst.Wildcard.Span(), strings.Join(parts, ", "))
				return true
			})
		}
	}
}

func declPorts(d ast.Decl) []string {
	var ports []ast.PortDecl
	switch v := d.(type) {
	case *ast.ModuleDecl:
		ports = v.Ports
	case *ast.InterfaceDecl:
		ports = v.Ports
	}
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name.Name)
	}
	return names
}
