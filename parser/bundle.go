package parser

import (
	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/span"
)

// Result is everything one parsed file contributes to the pickle engine:
// the final preprocessed bytes (registered into a span.Set by the caller),
// the structural tree built over those bytes, and the macro table as it
// stood at end-of-file (propagated to sibling files when
// --propagate_defines is set).
type Result struct {
	Path    string
	Bytes   []byte
	File    *ast.FileNode
	Defines Defines
}

// ParseFile preprocesses and structurally scans a single source file. id is
// the FileID the caller has already reserved (or will reserve immediately
// after this call returns) for the resulting bytes; every span inside the
// returned tree is relative to Result.Bytes.
func ParseFile(path string, id span.FileID, includeDirs []string, defines Defines, stripComments bool) (*Result, error) {
	pp := NewPreprocessor(includeDirs, defines.Clone())
	buf, err := pp.Process(path)
	if err != nil {
		return nil, err
	}
	if stripComments {
		buf = stripCommentBytes(buf)
	}
	file, err := Parse(path, id, buf)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Bytes: buf, File: file, Defines: pp.Defines}, nil
}

// stripCommentBytes blanks out // and /* */ comments with spaces (newlines
// preserved) so that byte offsets computed before and after stripping
// stay aligned; this mirrors the `--strip-comments` flag, applied after
// preprocessing so that a macro body containing "//" isn't mistaken for a
// comment before substitution.
func stripCommentBytes(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	i := 0
	for i < len(out) {
		if out[i] == '/' && i+1 < len(out) && out[i+1] == '/' {
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
			continue
		}
		if out[i] == '/' && i+1 < len(out) && out[i+1] == '*' {
			out[i] = ' '
			out[i+1] = ' '
			i += 2
			for i+1 < len(out) && !(out[i] == '*' && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i+1 < len(out) {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
			}
			continue
		}
		i++
	}
	return out
}
