// Package span owns the original source bytes for every file the pickler
// touches and represents byte ranges into them. It is the source of truth
// that the AST, the dependency graph, and the rewrite planner all refer to
// by file id and offset rather than by pointer, so that a Declaration can
// outlive the AST walk that discovered it.
package span

import "sort"

// FileID is a dense index into a Set. Set.Add returns ids starting at 0, so
// the zero value denotes the first file; callers that need a sentinel
// should use -1.
type FileID int

// Span is a byte range `[Offset, Offset+Length)` anchored to a single file.
// Every span the rewrite planner touches must fall fully within its file's
// bytes and on UTF-8 rune boundaries; callers that slice source bytes with a
// Span are expected to have derived it from a lexer, not hand-computed it.
type Span struct {
	Offset int
	Length int
}

// End returns the exclusive end offset of the span.
func (s Span) End() int { return s.Offset + s.Length }

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool { return s.Offset == 0 && s.Length == 0 }

// Pos is a one-based human-readable position, derived from a byte offset.
type Pos struct {
	Line int
	Col  int
}

// File holds the immutable, preprocessed bytes for a single source file
// along with the line-offset table needed to turn a byte offset into a
// Pos. Files are created once by the parser adapter and never mutated
// afterwards; all later byte spans are anchored to Bytes.
type File struct {
	id    FileID
	path  string
	bytes []byte
	// lines[i] is the byte offset at which line i+1 (1-based) begins.
	// lines[0] is always 0.
	lines []int
}

// NewFile constructs a File from its path and final (already preprocessed)
// byte contents, computing the line-offset table up front.
func NewFile(id FileID, path string, contents []byte) *File {
	f := &File{id: id, path: path, bytes: contents, lines: []int{0}}
	for i, b := range contents {
		if b == '\n' && i+1 < len(contents) {
			f.lines = append(f.lines, i+1)
		}
	}
	return f
}

func (f *File) ID() FileID     { return f.id }
func (f *File) Path() string   { return f.path }
func (f *File) Bytes() []byte  { return f.bytes }
func (f *File) Len() int       { return len(f.bytes) }

// Text returns the substring covered by sp. It panics if sp does not fall
// within the file's bytes; callers that construct spans from a trusted
// lexer never hit this.
func (f *File) Text(sp Span) string {
	return string(f.bytes[sp.Offset:sp.End()])
}

// Pos converts a byte offset into a one-based {line, col}.
func (f *File) Pos(offset int) Pos {
	// lines holds the offset of the start of each line; find the last line
	// whose start is <= offset.
	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return Pos{Line: i + 1, Col: offset - f.lines[i] + 1}
}

// EndsWithNewline reports whether the file's bytes end with '\n'.
// PreprocessOnly uses this to guarantee every emitted chunk is
// newline-terminated.
func (f *File) EndsWithNewline() bool {
	return len(f.bytes) > 0 && f.bytes[len(f.bytes)-1] == '\n'
}

// Set owns every File the pickler has parsed, keyed by FileID.
type Set struct {
	files []*File
}

// Add registers a new file and returns its id.
func (s *Set) Add(path string, contents []byte) *File {
	id := FileID(len(s.files))
	f := NewFile(id, path, contents)
	s.files = append(s.files, f)
	return f
}

// Get returns the file with the given id. It panics on an out-of-range id,
// which indicates an internal bug (a Declaration or Edit referencing a file
// that was never added).
func (s *Set) Get(id FileID) *File {
	return s.files[id]
}

// Len returns the number of files currently owned by the set.
func (s *Set) Len() int { return len(s.files) }

// All returns the files in insertion order. The slice must not be mutated.
func (s *Set) All() []*File { return s.files }
