package parser

import (
	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/span"
)

// ParseError reports a structural scan failure at a specific source
// position in the (already preprocessed) buffer.
type ParseError struct {
	Path string
	Pos  span.Pos
	Msg  string
}

func (e *ParseError) Error() string {
	return e.Path + ": " + e.Msg
}

var moduleKeywords = map[string]bool{"module": true, "macromodule": true}

// reservedWords excludes SystemVerilog keywords from being mistaken for an
// instantiation's type name by the structural heuristic below. It is not
// exhaustive; it covers the keywords that commonly start a statement or
// declaration inside a module/interface body.
var reservedWords = map[string]bool{
	"always": true, "always_comb": true, "always_ff": true, "always_latch": true,
	"assign": true, "begin": true, "end": true, "case": true, "casex": true, "casez": true,
	"endcase": true, "for": true, "generate": true, "endgenerate": true, "if": true, "else": true,
	"initial": true, "final": true, "function": true, "endfunction": true, "task": true, "endtask": true,
	"logic": true, "wire": true, "reg": true, "bit": true, "byte": true, "int": true, "integer": true,
	"shortint": true, "longint": true, "real": true, "time": true, "genvar": true,
	"input": true, "output": true, "inout": true, "ref": true, "parameter": true, "localparam": true,
	"typedef": true, "struct": true, "union": true, "enum": true, "packed": true, "unsigned": true, "signed": true,
	"import": true, "export": true, "package": true, "endpackage": true,
	"module": true, "endmodule": true, "macromodule": true, "interface": true, "endinterface": true,
	"class": true, "endclass": true, "extends": true, "implements": true, "virtual": true,
	"modport": true, "clocking": true, "endclocking": true, "property": true, "endproperty": true,
	"sequence": true, "endsequence": true, "covergroup": true, "endgroup": true,
	"timeunit": true, "timeprecision": true, "return": true, "break": true, "continue": true,
	"posedge": true, "negedge": true, "default": true, "disable": true, "fork": true, "join": true,
	"join_any": true, "join_none": true, "automatic": true, "static": true, "const": true,
}

// Parse runs the structural scan over an already-preprocessed buffer,
// producing a single FileNode. id must be the FileID that src's bytes were
// registered under in the enclosing span.Set, since every span in the
// returned tree is offset-only and meaningless without it.
func Parse(path string, id span.FileID, src []byte) (*ast.FileNode, error) {
	s := newScanner(src)
	file := &ast.FileNode{FileSpan: span.Span{Offset: 0, Length: len(src)}}
	for {
		s.skipTrivia()
		if s.eof() {
			break
		}
		decl, globalImport, err := scanTopLevel(path, s)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Pos = span.NewFile(id, path, src).Pos(s.pos)
			}
			return nil, err
		}
		if globalImport != nil {
			file.GlobalImports = append(file.GlobalImports, globalImport)
			continue
		}
		if decl != nil {
			file.Decls = append(file.Decls, decl)
			continue
		}
		// Not a recognized top-level construct (a lone `;`, a bare macro
		// invocation between declarations, stray text): skip one token's
		// worth of input so the scan always makes progress.
		skipOne(s)
	}
	return file, nil
}

func scanTopLevel(path string, s *scanner) (ast.Decl, *ast.PackageImportDecl, error) {
	start := s.pos
	if imp := tryScanTopLevelImport(s); imp != nil {
		return nil, imp, nil
	}
	s.pos = start

	for kw := range moduleKeywords {
		if s.peekKeyword(kw) {
			return scanModuleOrInterface(path, s, ast.KindModule, "endmodule")
		}
	}
	if s.peekKeyword("interface") {
		// `interface class` is a SV construct with no port list; it is
		// skipped up to endclass and no declaration is recorded for it.
		save := s.pos
		s.consumeKeyword("interface")
		s.skipTrivia()
		if s.peekKeyword("class") {
			s.pos = save
			return scanGenericEnd(s, "endclass")
		}
		s.pos = save
		return scanModuleOrInterface(path, s, ast.KindInterface, "endinterface")
	}
	if s.peekKeyword("package") {
		return scanPackage(path, s)
	}
	return nil, nil, nil
}

func scanGenericEnd(s *scanner, end string) (ast.Decl, *ast.PackageImportDecl, error) {
	start := s.pos
	for !s.eof() && !s.peekKeyword(end) {
		skipOne(s)
	}
	if !s.eof() {
		s.consumeKeyword(end)
	}
	_ = start
	return nil, nil, nil
}

// tryScanTopLevelImport recognizes a bare `import pkg::item;` (or
// `pkg::*;`) at file scope, which the indexer treats as a global import
// affecting every declaration in the file. Returns nil without consuming
// input if the upcoming tokens aren't an import statement.
func tryScanTopLevelImport(s *scanner) *ast.PackageImportDecl {
	start := s.pos
	if !s.consumeKeyword("import") {
		return nil
	}
	s.skipTrivia()
	nameStart := s.pos
	text, identStart, identEnd, _, ok := s.scanIdent()
	if !ok {
		s.pos = start
		return nil
	}
	s.skipTrivia()
	if !(s.peek() == ':' && s.peekAt(1) == ':') {
		s.pos = start
		return nil
	}
	s.advance()
	s.advance()
	s.skipTrivia()
	// Consume the imported item or `*`, then require a terminating `;`.
	if s.peek() == '*' {
		s.advance()
	} else {
		if _, _, _, _, ok := s.scanIdent(); !ok {
			s.pos = start
			return nil
		}
	}
	s.skipTrivia()
	if s.peek() != ';' {
		s.pos = start
		return nil
	}
	s.advance()
	_ = nameStart
	return &ast.PackageImportDecl{
		ImportSpan: span.Span{Offset: start, Length: s.pos - start},
		Target: ast.Ident{
			NameSpan: span.Span{Offset: identStart, Length: identEnd - identStart},
			Name:     text,
		},
	}
}

func scanModuleOrInterface(path string, s *scanner, kind ast.SvKind, endKw string) (ast.Decl, *ast.PackageImportDecl, error) {
	start := s.pos
	skipOne(s) // consume `module`/`macromodule`/`interface` keyword
	s.skipTrivia()
	nameText, nameStart, nameEnd, _, ok := s.scanIdent()
	if !ok {
		return nil, nil, &ParseError{Path: path, Msg: "expected identifier after module/interface keyword"}
	}
	name := ast.Ident{NameSpan: span.Span{Offset: nameStart, Length: nameEnd - nameStart}, Name: nameText}

	ports := scanPortList(s)

	items, err := scanBody(path, s, endKw)
	if err != nil {
		return nil, nil, err
	}
	headerEnd := s.pos
	decl := ast.Decl(nil)
	header := span.Span{Offset: start, Length: headerEnd - start}
	if kind == ast.KindModule {
		decl = &ast.ModuleDecl{Header: header, Name: name, Ports: ports, Items: items}
	} else {
		decl = &ast.InterfaceDecl{Header: header, Name: name, Ports: ports, Items: items}
	}
	return decl, nil, nil
}

func scanPackage(path string, s *scanner) (ast.Decl, *ast.PackageImportDecl, error) {
	start := s.pos
	skipOne(s) // consume `package`
	s.skipTrivia()
	nameText, nameStart, nameEnd, _, ok := s.scanIdent()
	if !ok {
		return nil, nil, &ParseError{Path: path, Msg: "expected identifier after package keyword"}
	}
	name := ast.Ident{NameSpan: span.Span{Offset: nameStart, Length: nameEnd - nameStart}, Name: nameText}
	s.skipTrivia()
	if s.peek() == ';' {
		s.advance()
	}
	items, err := scanBody(path, s, "endpackage")
	if err != nil {
		return nil, nil, err
	}
	return &ast.PackageDecl{
		Header: span.Span{Offset: start, Length: s.pos - start},
		Name:   name,
		Items:  items,
	}, nil, nil
}

// scanPortList scans a best-effort `(...)` port list into PortDecl nodes,
// recognizing only the `identifier` that names each port; direction,
// width, and type are skipped. It is tolerant of ANSI and non-ANSI
// headers and of interface-typed ports (`ifc_t.mp name`), recording the
// interface type as a usage when present.
func scanPortList(s *scanner) []ast.PortDecl {
	s.skipTrivia()
	// Optional parameter list: `#( ... )`
	if s.peek() == '#' {
		s.advance()
		s.skipTrivia()
		skipBalanced(s, '(', ')')
		s.skipTrivia()
	}
	if s.peek() != ';' && s.peek() != '(' {
		return nil
	}
	if s.peek() == ';' {
		return nil
	}
	depth := 0
	var ports []ast.PortDecl
	start := s.pos
	s.advance() // consume '('
	depth = 1
	for !s.eof() && depth > 0 {
		s.skipTrivia()
		if s.eof() {
			break
		}
		switch s.peek() {
		case '(':
			depth++
			s.advance()
		case ')':
			depth--
			s.advance()
		case ',':
			s.advance()
		default:
			if depth == 1 && isIdentStart(s.peek()) {
				save := s.pos
				text, identStart, identEnd, _, ok := s.scanIdent()
				if ok && !reservedWords[text] {
					s.skipTrivia()
					// If followed directly by another identifier (a type
					// name preceding the port name), keep scanning for the
					// last identifier before `,`/`)`/`[`/`=`.
					for isIdentStart(s.peek()) {
						save2 := s.pos
						t2, i2s, i2e, _, ok2 := s.scanIdent()
						if !ok2 || reservedWords[t2] {
							s.pos = save2
							break
						}
						text, identStart, identEnd = t2, i2s, i2e
						s.skipTrivia()
					}
					ports = append(ports, ast.PortDecl{
						PortSpan: span.Span{Offset: identStart, Length: identEnd - identStart},
						Name:     ast.Ident{NameSpan: span.Span{Offset: identStart, Length: identEnd - identStart}, Name: text},
					})
				} else if !ok {
					s.pos = save
					s.advance()
				}
			} else {
				s.advance()
			}
		}
	}
	_ = start
	return ports
}

// scanBody scans declaration items until the matching end keyword,
// recognizing instantiations, package scope usages, class scope usages,
// macro definitions, and timeunit declarations. Everything else is
// skipped token by token.
func scanBody(path string, s *scanner, endKw string) ([]ast.Node, error) {
	var items []ast.Node
	depth := 0 // tracks begin/end nesting so a nested `end` inside
	// a statement block isn't mistaken for the declaration's own end keyword
	for {
		s.skipTrivia()
		if s.eof() {
			return nil, &ParseError{Path: path, Msg: "unexpected EOF, expected " + endKw}
		}
		if depth == 0 && s.peekKeyword(endKw) {
			s.consumeKeyword(endKw)
			return items, nil
		}
		if s.peekKeyword("begin") {
			s.consumeKeyword("begin")
			depth++
			continue
		}
		if depth > 0 && s.peekKeyword("end") {
			s.consumeKeyword("end")
			depth--
			continue
		}
		if n := tryScanMacroDef(s); n != nil {
			items = append(items, n)
			continue
		}
		if n := tryScanTimeunits(s); n != nil {
			items = append(items, n)
			continue
		}
		if n := tryScanImportItem(s); n != nil {
			items = append(items, n)
			continue
		}
		if n := tryScanScopeResolution(s); n != nil {
			items = append(items, n)
			continue
		}
		if n := tryScanInstantiation(s); n != nil {
			items = append(items, n)
			continue
		}
		skipOne(s)
	}
}

func tryScanMacroDef(s *scanner) ast.Node {
	if s.peek() != '`' {
		return nil
	}
	start := s.pos
	save := s.pos
	s.advance()
	name, _, _, _, ok := s.scanIdent()
	if !ok || name != "define" {
		s.pos = save
		return nil
	}
	s.skipTrivia()
	macroName, _, _, _, _ := s.scanIdent()
	// Consume to end of logical line (honoring backslash continuation).
	for !s.eof() {
		if s.peek() == '\\' && s.peekAt(1) == '\n' {
			s.advance()
			s.advance()
			continue
		}
		if s.peek() == '\n' {
			s.advance()
			break
		}
		s.advance()
	}
	return &ast.TextMacroDefinition{DefSpan: span.Span{Offset: start, Length: s.pos - start}, Name: macroName}
}

func tryScanTimeunits(s *scanner) ast.Node {
	start := s.pos
	if !s.peekKeyword("timeunit") && !s.peekKeyword("timeprecision") {
		return nil
	}
	for !s.eof() && s.peek() != ';' {
		s.advance()
	}
	if !s.eof() {
		s.advance()
	}
	return &ast.TimeunitsDeclaration{DeclSpan: span.Span{Offset: start, Length: s.pos - start}}
}

// tryScanImportItem recognizes an in-body `import pkg::item;` / `pkg::*;`.
func tryScanImportItem(s *scanner) ast.Node {
	start := s.pos
	if !s.consumeKeyword("import") {
		return nil
	}
	s.skipTrivia()
	text, identStart, identEnd, _, ok := s.scanIdent()
	if !ok {
		s.pos = start
		return nil
	}
	s.skipTrivia()
	if !(s.peek() == ':' && s.peekAt(1) == ':') {
		s.pos = start
		return nil
	}
	s.advance()
	s.advance()
	s.skipTrivia()
	if s.peek() == '*' {
		s.advance()
	} else {
		s.scanIdent()
	}
	s.skipTrivia()
	if s.peek() == ';' {
		s.advance()
	}
	return &ast.PackageImportItem{
		ImportSpan: span.Span{Offset: start, Length: s.pos - start},
		Target:     ast.Ident{NameSpan: span.Span{Offset: identStart, Length: identEnd - identStart}, Name: text},
	}
}

// tryScanScopeResolution recognizes `name::` outside of an import
// statement. The scanner has no symbol table, so it classifies by casing:
// a name starting with an uppercase ASCII letter becomes a ClassScope,
// every other name a PackageScope.
func tryScanScopeResolution(s *scanner) ast.Node {
	start := s.pos
	if !isIdentStart(s.peek()) && s.peek() != '\\' {
		return nil
	}
	text, identStart, identEnd, _, ok := s.scanIdent()
	if !ok || reservedWords[text] {
		s.pos = start
		return nil
	}
	if !(s.peek() == ':' && s.peekAt(1) == ':') {
		s.pos = start
		return nil
	}
	s.advance()
	s.advance()
	id := ast.Ident{NameSpan: span.Span{Offset: identStart, Length: identEnd - identStart}, Name: text}
	sp := span.Span{Offset: start, Length: s.pos - start}
	if len(text) > 0 && text[0] >= 'A' && text[0] <= 'Z' {
		return &ast.ClassScope{ScopeSpan: sp, Target: id}
	}
	return &ast.PackageScope{ScopeSpan: sp, Target: id}
}

// tryScanInstantiation recognizes `type_name [#( params )] inst_name (`
// optionally followed by a `.*` wildcard or explicit `.port(expr)` items,
// terminated by `);`. It cannot tell a module instantiation from an
// interface instantiation by syntax alone (both look identical); the
// indexer resolves the kind by looking the type name up in the
// declaration table.
func tryScanInstantiation(s *scanner) ast.Node {
	start := s.pos
	typeText, _, _, _, ok := s.scanIdent()
	if !ok || reservedWords[typeText] {
		s.pos = start
		return nil
	}
	typeStart, typeEnd := start, s.pos
	s.skipTrivia()
	if s.peek() == '#' {
		s.advance()
		s.skipTrivia()
		if s.peek() != '(' {
			s.pos = start
			return nil
		}
		skipBalanced(s, '(', ')')
		s.skipTrivia()
	}
	if !isIdentStart(s.peek()) && s.peek() != '\\' {
		s.pos = start
		return nil
	}
	_, _, _, _, ok = s.scanIdent()
	if !ok {
		s.pos = start
		return nil
	}
	s.skipTrivia()
	// Array of instances: `inst_name [N:0]`
	if s.peek() == '[' {
		skipBalanced(s, '[', ']')
		s.skipTrivia()
	}
	if s.peek() != '(' {
		s.pos = start
		return nil
	}
	portListStart := s.pos
	var wildcard *ast.DotStarWildcard
	var explicitPorts []ast.Ident
	depth := 0
	for !s.eof() {
		if s.peek() == '(' {
			depth++
			s.advance()
			continue
		}
		if s.peek() == ')' {
			depth--
			s.advance()
			if depth == 0 {
				break
			}
			continue
		}
		if depth == 1 && s.peek() == '.' && s.peekAt(1) == '*' {
			wStart := s.pos
			s.advance()
			s.advance()
			wildcard = &ast.DotStarWildcard{WildcardSpan: span.Span{Offset: wStart, Length: s.pos - wStart}}
			continue
		}
		if depth == 1 && s.peek() == '.' {
			s.advance()
			if isIdentStart(s.peek()) || s.peek() == '\\' {
				text, identStart, identEnd, _, ok := s.scanIdent()
				if ok {
					explicitPorts = append(explicitPorts, ast.Ident{NameSpan: span.Span{Offset: identStart, Length: identEnd - identStart}, Name: text})
				}
			}
			continue
		}
		s.advance()
	}
	s.skipTrivia()
	if s.peek() != ';' {
		s.pos = start
		return nil
	}
	s.advance()
	_ = portListStart
	instSpan := span.Span{Offset: start, Length: s.pos - start}
	target := ast.Ident{NameSpan: span.Span{Offset: typeStart, Length: typeEnd - typeStart}, Name: typeText}
	// The scanner cannot distinguish a module from an interface
	// instantiation without the declaration table; it always emits a
	// ModuleInstantiation, and the indexer records the usage with interface
	// kind when the target resolves to an interface (the node itself stays
	// a ModuleInstantiation).
	return &ast.ModuleInstantiation{InstSpan: instSpan, Target: target, Wildcard: wildcard, ExplicitPorts: explicitPorts}
}

func skipBalanced(s *scanner, open, close rune) {
	if s.peek() != open {
		return
	}
	depth := 0
	for !s.eof() {
		r := s.peek()
		if r == open {
			depth++
		} else if r == close {
			depth--
			if depth == 0 {
				s.advance()
				return
			}
		}
		s.advance()
	}
}

func skipOne(s *scanner) {
	if s.eof() {
		return
	}
	if isIdentStart(s.peek()) || s.peek() == '\\' {
		if _, _, _, _, ok := s.scanIdent(); ok {
			return
		}
	}
	s.advance()
}
