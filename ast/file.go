package ast

import "github.com/pulp-platform/svpickle/span"

// FileNode is the root of a single parsed file's tree.
type FileNode struct {
	FileSpan      span.Span
	Decls         []Decl
	GlobalImports []*PackageImportDecl
}

func (f *FileNode) Span() span.Span { return f.FileSpan }

func (f *FileNode) Children() []Node {
	children := make([]Node, 0, len(f.Decls)+len(f.GlobalImports))
	for _, d := range f.Decls {
		children = append(children, d)
	}
	for _, gi := range f.GlobalImports {
		children = append(children, gi)
	}
	return children
}

// Decl is implemented by the three kinds of top-level declarations the
// indexer records: modules, interfaces, and packages.
type Decl interface {
	Node
	DeclName() Ident
	Kind() SvKind
	// HeaderSpan covers the whole declaration, used by exclusion removal
	// and by node lookup; Span() returns the same value for declarations.
	HeaderSpan() span.Span
}

// ModuleDecl is a `module ... endmodule` declaration.
type ModuleDecl struct {
	Header span.Span
	Name   Ident
	Ports  []PortDecl
	Items  []Node
}

func (d *ModuleDecl) Span() span.Span     { return d.Header }
func (d *ModuleDecl) HeaderSpan() span.Span { return d.Header }
func (d *ModuleDecl) DeclName() Ident      { return d.Name }
func (d *ModuleDecl) Kind() SvKind         { return KindModule }
func (d *ModuleDecl) Children() []Node {
	children := make([]Node, 0, len(d.Ports)+len(d.Items)+1)
	children = append(children, d.Name)
	for _, p := range d.Ports {
		children = append(children, p)
	}
	children = append(children, d.Items...)
	return children
}

// InterfaceDecl is an `interface ... endinterface` declaration.
type InterfaceDecl struct {
	Header span.Span
	Name   Ident
	Ports  []PortDecl
	Items  []Node
}

func (d *InterfaceDecl) Span() span.Span       { return d.Header }
func (d *InterfaceDecl) HeaderSpan() span.Span { return d.Header }
func (d *InterfaceDecl) DeclName() Ident       { return d.Name }
func (d *InterfaceDecl) Kind() SvKind          { return KindInterface }
func (d *InterfaceDecl) Children() []Node {
	children := make([]Node, 0, len(d.Ports)+len(d.Items)+1)
	children = append(children, d.Name)
	for _, p := range d.Ports {
		children = append(children, p)
	}
	children = append(children, d.Items...)
	return children
}

// PackageDecl is a `package ... endpackage` declaration.
type PackageDecl struct {
	Header span.Span
	Name   Ident
	Items  []Node
}

func (d *PackageDecl) Span() span.Span       { return d.Header }
func (d *PackageDecl) HeaderSpan() span.Span { return d.Header }
func (d *PackageDecl) DeclName() Ident       { return d.Name }
func (d *PackageDecl) Kind() SvKind          { return KindPackage }
func (d *PackageDecl) Children() []Node {
	children := make([]Node, 0, len(d.Items)+1)
	children = append(children, d.Name)
	children = append(children, d.Items...)
	return children
}

// PortDecl is one declared port of a module or interface, in declaration
// order. Used by dot-star expansion to enumerate the ports an instantiated
// module has.
type PortDecl struct {
	PortSpan span.Span
	Name     Ident
}

func (p PortDecl) Span() span.Span  { return p.PortSpan }
func (p PortDecl) Children() []Node { return []Node{p.Name} }

// ModuleInstantiation is a usage of a module name inside another
// declaration's body, e.g. `foo u_foo(...);`.
type ModuleInstantiation struct {
	InstSpan     span.Span
	Target       Ident
	Wildcard     *DotStarWildcard // non-nil if a `.*` connection is present
	ExplicitPorts []Ident          // named ports already explicitly connected
}

func (m *ModuleInstantiation) Span() span.Span { return m.InstSpan }
func (m *ModuleInstantiation) Children() []Node {
	children := []Node{m.Target}
	if m.Wildcard != nil {
		children = append(children, m.Wildcard)
	}
	return children
}

// DotStarWildcard is the `.*` token inside a named-port-connection list.
type DotStarWildcard struct {
	WildcardSpan span.Span
}

func (w *DotStarWildcard) Span() span.Span  { return w.WildcardSpan }
func (w *DotStarWildcard) Children() []Node { return nil }

// InterfaceInstantiation is a usage of an interface name, e.g.
// `ifc_t ifc_u(...);`.
type InterfaceInstantiation struct {
	InstSpan span.Span
	Target   Ident
}

func (i *InterfaceInstantiation) Span() span.Span  { return i.InstSpan }
func (i *InterfaceInstantiation) Children() []Node { return []Node{i.Target} }

// InterfacePortHeader is an interface type name used in a port header,
// e.g. `ifc_t.modport p`.
type InterfacePortHeader struct {
	HeaderSpan span.Span
	Target     Ident
}

func (i *InterfacePortHeader) Span() span.Span  { return i.HeaderSpan }
func (i *InterfacePortHeader) Children() []Node { return []Node{i.Target} }

// PackageImportItem is a usage inside `import pkg::item;` (or `pkg::*;`).
type PackageImportItem struct {
	ImportSpan span.Span
	Target     Ident
}

func (p *PackageImportItem) Span() span.Span  { return p.ImportSpan }
func (p *PackageImportItem) Children() []Node { return []Node{p.Target} }

// PackageImportDecl is a top-level (source-text) `import pkg::*;`, treated
// as a global import: every declaration in the same file is considered to
// depend on it (an approximation deliberately preserved from the original
// implementation - see DESIGN.md's Open Question decisions).
type PackageImportDecl struct {
	ImportSpan span.Span
	Target     Ident
}

func (p *PackageImportDecl) Span() span.Span  { return p.ImportSpan }
func (p *PackageImportDecl) Children() []Node { return []Node{p.Target} }

// PackageScope is a `pkg::symbol` qualifier used as an expression/type
// prefix outside of an import statement.
type PackageScope struct {
	ScopeSpan span.Span
	Target    Ident
}

func (p *PackageScope) Span() span.Span  { return p.ScopeSpan }
func (p *PackageScope) Children() []Node { return []Node{p.Target} }

// ClassScope is a `Class::member` qualifier.
type ClassScope struct {
	ScopeSpan span.Span
	Target    Ident
}

func (c *ClassScope) Span() span.Span  { return c.ScopeSpan }
func (c *ClassScope) Children() []Node { return []Node{c.Target} }

// TextMacroDefinition is a `` `define NAME ... `` directive span, including
// its terminating newline-escape continuation if any.
type TextMacroDefinition struct {
	DefSpan span.Span
	Name    string
}

func (t *TextMacroDefinition) Span() span.Span  { return t.DefSpan }
func (t *TextMacroDefinition) Children() []Node { return nil }

// TimeunitsDeclaration is a `timeunit ...;` / `timeprecision ...;` span.
type TimeunitsDeclaration struct {
	DeclSpan span.Span
}

func (t *TimeunitsDeclaration) Span() span.Span  { return t.DeclSpan }
func (t *TimeunitsDeclaration) Children() []Node { return nil }
