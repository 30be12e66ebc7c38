package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/parser"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/span"
)

// LibraryMap resolves a bare module name to the library file that is
// expected to declare it, per the "library files are named
// module_name.v/.sv" convention. It is built once from the configured
// library directories/files and consulted on every index miss.
type LibraryMap struct {
	byModule map[string]string // module name -> file path
}

var libExts = map[string]bool{".v": true, ".sv": true}

// NewLibraryMap scans dirs (non-recursively) and registers files (already
// resolved paths) into a name -> path map, skipping files whose extension
// isn't a recognized Verilog/SystemVerilog library extension.
func NewLibraryMap(dirs []string, files []string) (*LibraryMap, error) {
	lm := &LibraryMap{byModule: map[string]string{}}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading library dir %q: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !libExts[filepath.Ext(e.Name())] {
				continue
			}
			path := filepath.Join(dir, e.Name())
			lm.byModule[StripExt(path)] = path
		}
	}
	for _, f := range files {
		if !libExts[filepath.Ext(f)] {
			continue
		}
		lm.byModule[StripExt(f)] = f
	}
	return lm, nil
}

func (lm *LibraryMap) lookup(name string) (string, bool) {
	if lm == nil {
		return "", false
	}
	path, ok := lm.byModule[name]
	return path, ok
}

// Lookup resolves a module/interface name to its library file path.
func (lm *LibraryMap) Lookup(name string) (string, bool) {
	return lm.lookup(name)
}

// Resolver holds the library map, parser options, and the shared span
// set an Index needs to resolve usages on demand.
type Resolver struct {
	Map           *LibraryMap
	Files         *span.Set
	IncludeDirs   []string
	Defines       parser.Defines
	StripComments bool

	// Resolved tracks names already resolved against the library map, so a
	// name referenced from two different places is only resolved once.
	Resolved map[string]bool

	// Parsed accumulates every library file's parsed tree, keyed by the
	// span.FileID it was registered under in Files, so callers can fold
	// library-resolved files into their own per-file bookkeeping (e.g. the
	// rewrite planner's macro/timeunit/dot-star passes).
	Parsed map[span.FileID]*ast.FileNode

	// warned tracks which undeclared names have already produced a final
	// LibraryNotFoundWarning, so that calling ResolveMissing more than once
	// against the same Index (e.g. once per input bundle) never reports the
	// same still-missing name twice.
	warned map[string]bool
}

func NewResolver(lm *LibraryMap, files *span.Set, includeDirs []string, defines parser.Defines, stripComments bool) *Resolver {
	return &Resolver{Map: lm, Files: files, IncludeDirs: includeDirs, Defines: defines, StripComments: stripComments, Resolved: map[string]bool{}, Parsed: map[span.FileID]*ast.FileNode{}, warned: map[string]bool{}}
}

// ResolveMissing repeatedly scans ix.Names() for a name with no
// Declaration, resolves it against r.Map, parses and re-indexes the
// result, and recurses — since the newly parsed file can itself use names
// that are still missing — until a pass makes no further progress. This
// mirrors the original implementation's load_library_module recursion,
// which terminates only once every name reachable through library
// resolution has either been declared or definitively given up on.
func (r *Resolver) ResolveMissing(ix *Index) error {
	if r.Map == nil {
		return nil
	}
	for {
		progressed := false
		for _, name := range ix.Names() {
			if ix.Declaration(name) != nil {
				continue
			}
			path, ok := r.Map.lookup(name)
			if !ok || r.Resolved[name] {
				continue
			}
			r.Resolved[name] = true
			res, err := parser.ParseFile(path, span.FileID(r.Files.Len()), r.IncludeDirs, r.Defines, r.StripComments)
			if err != nil {
				ix.Handler.HandleWarning(reporter.Error(path, span.Pos{}, &reporter.LibraryNotFoundWarning{Name: name}))
				continue
			}
			f := r.Files.Add(path, res.Bytes)
			if err := ix.AddFile(path, f.ID(), res.File); err != nil {
				return err
			}
			r.Parsed[f.ID()] = res.File
			progressed = true
		}
		if !progressed {
			break
		}
	}
	for _, name := range ix.Names() {
		if ix.Declaration(name) == nil && !r.warned[name] {
			r.warned[name] = true
			ix.Handler.HandleWarning(reporter.Error("", span.Pos{}, &reporter.LibraryNotFoundWarning{Name: name}))
		}
	}
	return nil
}
