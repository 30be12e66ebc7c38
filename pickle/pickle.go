// Package pickle is the orchestrator (component H): it owns the parse
// pool, the index, and the dependency graph, and exposes the operations a
// caller chains together to go from a set of source files to pickled
// output, a manifest, and a dependency graph.
package pickle

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/bundle"
	"github.com/pulp-platform/svpickle/emit"
	"github.com/pulp-platform/svpickle/graph"
	"github.com/pulp-platform/svpickle/index"
	"github.com/pulp-platform/svpickle/parser"
	"github.com/pulp-platform/svpickle/reporter"
	"github.com/pulp-platform/svpickle/rewrite"
	"github.com/pulp-platform/svpickle/span"
)

// Config configures one Pickle run.
type Config struct {
	IncludeDirs   []string
	Defines       parser.Defines
	StripComments bool
	// MaxParallelism caps how many files are parsed concurrently; 0 means
	// "use GOMAXPROCS", matching the teacher's own default. 1 makes
	// parsing fully sequential, for --sequential / deterministic-log runs.
	MaxParallelism int
	// PropagateDefines carries a file's macro table (as it stood at
	// end-of-file) into the Defines table the next file in paths is parsed
	// against, mirroring `--propagate_defines`. Since each file's starting
	// table depends on the previous file's result, setting this forces
	// AddFiles to parse sequentially regardless of MaxParallelism.
	PropagateDefines bool
	Reporter         reporter.Reporter
}

// Pickle holds everything accumulated across a run: parsed files, the
// index built over them, and the graph computed from the index. Pruning,
// renaming, and the strip/expand operations mutate it in place, mirroring
// spec.md's description of the orchestrator as a single stateful object
// that operations are applied to in sequence.
type Pickle struct {
	cfg     Config
	Handler *reporter.Handler
	Files   *span.Set
	Index   *index.Index

	fileNodes map[span.FileID]*parsedFile
	planner   *rewrite.Planner
	graph     *graph.Graph

	libMap   *index.LibraryMap
	resolver *index.Resolver
	usedLibs []string
}

type parsedFile struct {
	path string
	file *ast.FileNode
}

func New(cfg Config) *Pickle {
	h := reporter.NewHandler(cfg.Reporter)
	return &Pickle{
		cfg:       cfg,
		Handler:   h,
		Files:     &span.Set{},
		Index:     index.New(h),
		fileNodes: map[span.FileID]*parsedFile{},
		planner:   rewrite.NewPlanner(),
	}
}

// AddLibs configures the library search path consulted whenever a usage
// can't be resolved against the bundle's own declarations.
func (p *Pickle) AddLibs(dirs, files []string) error {
	lm, err := index.NewLibraryMap(dirs, files)
	if err != nil {
		return err
	}
	p.libMap = lm
	p.resolver = index.NewResolver(lm, p.Files, p.cfg.IncludeDirs, p.cfg.Defines, p.cfg.StripComments)
	return nil
}

// AddFiles preprocesses and structurally scans every path in paths against
// the run's global Config.IncludeDirs/Defines and indexes the results in
// input order. It is a thin wrapper around addFilesConfig, the bundle-aware
// worker both it and AddBundles share.
func (p *Pickle) AddFiles(ctx context.Context, paths []string) error {
	if err := p.addFilesConfig(ctx, paths, p.cfg.IncludeDirs, p.cfg.Defines); err != nil {
		return err
	}
	return p.resolveLibs()
}

// AddBundles preprocesses and indexes every file named across bundles, each
// bundle parsed against its own include dirs and defines (export_incdirs
// folded into include dirs, defines layered over the run's global
// Config.Defines) rather than the single global configuration AddFiles
// uses - the "-f/--file-list" input bundle manifest surface, and the
// Bundle data-model entity (a group of files sharing include paths and
// defines) that a flat []string of paths can't represent on its own.
func (p *Pickle) AddBundles(ctx context.Context, bundles []bundle.FileBundle) error {
	for _, b := range bundles {
		incdirs := append(append([]string(nil), b.IncludeDirs...), p.cfg.IncludeDirs...)
		for _, dirs := range b.ExportIncdirs {
			incdirs = append(incdirs, dirs...)
		}
		defines := p.cfg.Defines.Clone()
		for name, val := range b.Defines {
			defines[name] = val
		}
		if err := p.addFilesConfig(ctx, b.Files, incdirs, defines); err != nil {
			return err
		}
	}
	return p.resolveLibs()
}

// addFilesConfig preprocesses and structurally scans every path in paths
// against the given incdirs/defines and indexes the results in input
// order, without resolving libraries (callers do that once after every
// bundle has been indexed). When cfg.PropagateDefines is unset this is
// bounded by cfg.MaxParallelism concurrent workers (parallel work,
// order-preserving results - mirroring the teacher's own executor/task
// scheduling pattern); when it is set, each file's macro table depends on
// the previous file's result, so parsing is forced fully sequential
// instead. File ids are allocated starting from the file set's current
// length, so this may be called more than once against the same Pickle.
func (p *Pickle) addFilesConfig(ctx context.Context, paths []string, incdirs []string, defines parser.Defines) error {
	if p.cfg.PropagateDefines {
		return p.addFilesPropagating(ctx, paths, incdirs, defines)
	}

	base := span.FileID(p.Files.Len())
	par := p.cfg.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
	}
	sem := semaphore.NewWeighted(int64(par))
	results := make([]*parser.Result, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		id := base + span.FileID(i)
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(i int, id span.FileID, path string) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := parser.ParseFile(path, id, incdirs, defines, p.cfg.StripComments)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = res
		}(i, id, path)
	}
	wg.Wait()

	for i, path := range paths {
		id := span.FileID(p.Files.Len())
		if errs[i] != nil {
			if err := p.Handler.HandleError(reporter.Error(path, span.Pos{}, &reporter.PreprocessFailedError{Path: path, Err: errs[i]})); err != nil {
				return err
			}
			continue
		}
		if err := p.indexParsed(path, id, results[i]); err != nil {
			return err
		}
	}
	return nil
}

// addFilesPropagating is addFilesConfig's --propagate_defines path: files
// are parsed one at a time, each against the macro table the previous file
// left behind (falling back to defines for the first file), rather than
// all against the same static table.
func (p *Pickle) addFilesPropagating(ctx context.Context, paths []string, incdirs []string, defines parser.Defines) error {
	running := defines.Clone()
	for _, path := range paths {
		id := span.FileID(p.Files.Len())
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := parser.ParseFile(path, id, incdirs, running, p.cfg.StripComments)
		if err != nil {
			if err := p.Handler.HandleError(reporter.Error(path, span.Pos{}, &reporter.PreprocessFailedError{Path: path, Err: err})); err != nil {
				return err
			}
			continue
		}
		running = res.Defines.Clone()
		if err := p.indexParsed(path, id, res); err != nil {
			return err
		}
	}
	return nil
}

// indexParsed registers one already-parsed file's bytes and tree with the
// file set and the index.
func (p *Pickle) indexParsed(path string, id span.FileID, res *parser.Result) error {
	f := p.Files.Add(path, res.Bytes)
	if f.ID() != id {
		panic("internal error: file id/index mismatch")
	}
	p.fileNodes[f.ID()] = &parsedFile{path: path, file: res.File}
	return p.Index.AddFile(path, f.ID(), res.File)
}

// resolveLibs consults the library resolver (if configured) for every name
// still undeclared after indexing, recording which library files were
// pulled in.
func (p *Pickle) resolveLibs() error {
	if p.resolver == nil {
		return nil
	}
	if err := p.resolver.ResolveMissing(p.Index); err != nil {
		return err
	}
	for name := range p.resolver.Resolved {
		if path, ok := p.libMap.Lookup(name); ok {
			p.usedLibs = append(p.usedLibs, path)
		}
	}
	sort.Strings(p.usedLibs)
	return nil
}

// BuildGraph computes the dependency graph from every declaration and
// usage indexed so far. It must be called (and re-called after AddFiles
// adds more files) before Prune/Pickle/Manifest/Dot.
func (p *Pickle) BuildGraph() {
	p.graph = graph.Build(p.Index)
}

// PruneGraph replaces the current graph with the subgraph reachable from
// top.
func (p *Pickle) PruneGraph(top string) error {
	pruned, err := p.graph.Prune(top)
	if err != nil {
		return err
	}
	p.graph = pruned
	return nil
}

// Rename plans prefix/suffix renaming of every declaration not in
// exclude.
func (p *Pickle) Rename(prefix, suffix string, exclude map[string]bool) {
	p.planner.Rename(p.Index, prefix, suffix, exclude)
}

// RemoveMacros plans deletion of every `` `define`` directive.
func (p *Pickle) RemoveMacros() {
	p.planner.RemoveMacros(p.fileASTs())
}

// RemoveTimeunits plans deletion of every timeunit/timeprecision
// declaration.
func (p *Pickle) RemoveTimeunits() {
	p.planner.RemoveTimeunits(p.fileASTs())
}

// InferDotStar plans expansion of every `.*` wildcard port connection.
func (p *Pickle) InferDotStar() {
	p.planner.InferDotStar(p.Index, p.fileASTs())
}

// fileASTs returns every parsed tree (bundle files plus any library files
// pulled in on demand), keyed by FileID, for the rewrite planner's
// whole-file passes.
func (p *Pickle) fileASTs() map[span.FileID]*ast.FileNode {
	out := make(map[span.FileID]*ast.FileNode, len(p.fileNodes))
	for id, pf := range p.fileNodes {
		out[id] = pf.file
	}
	if p.resolver != nil {
		for id, f := range p.resolver.Parsed {
			out[id] = f
		}
	}
	return out
}

// Pickle renders the final output: topological order when topological is
// true, classic (input) order otherwise, with exclude names omitted
// entirely and every planned edit applied. now is the banner timestamp;
// callers supply it (e.g. from cmd/svpickle) so this package never calls
// time.Now() itself.
func (p *Pickle) Pickle(topological bool, exclude map[string]bool, now time.Time) ([]byte, error) {
	return emit.Emit(p.Files, p.Index, p.graph, p.planner, p.Handler, emit.Options{
		Exclude:     exclude,
		Topological: topological,
		Now:         now,
	})
}

// PreprocessOnly concatenates every preprocessed file verbatim, skipping
// indexing/graph/edit application entirely (the --E CLI mode).
func (p *Pickle) PreprocessOnly() []byte {
	return emit.PreprocessOnly(p.Files)
}

// Manifest builds the JSON-facing manifest describing this run.
func (p *Pickle) Manifest(baseDirs []string, baseDefines map[string]*string, extraBundles []bundle.FileBundle) *bundle.Manifest {
	return emit.Manifest(p.graph, p.Index, baseDirs, baseDefines, p.usedLibs, extraBundles)
}

// Dot renders the current graph as Graphviz dot.
func (p *Pickle) Dot() []byte {
	return emit.Dot(p.graph)
}
