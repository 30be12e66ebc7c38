// Command svpickle concatenates a SystemVerilog source tree into a single
// file (or a topologically ordered bundle), optionally pruning to a
// chosen top, renaming declarations, and resolving library dependencies,
// emitting the result alongside a JSON manifest and/or a Graphviz
// dependency graph.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pulp-platform/svpickle/bundle"
	"github.com/pulp-platform/svpickle/emit"
	"github.com/pulp-platform/svpickle/parser"
	"github.com/pulp-platform/svpickle/pickle"
	"github.com/pulp-platform/svpickle/reporter"
)

var (
	includeDirs      []string
	defines          []string
	excludeRename    []string
	exclude          []string
	prefix           string
	suffix           string
	preprocessOnly   bool
	fileLists        []string
	flistFiles       []string
	stripComments    bool
	outputPath       string
	libraryFiles     []string
	libraryDirs      []string
	manifestPath     string
	topModule        string
	graphFile        string
	ignoreUnparsable bool
	keepDefines      bool
	propagateDefines bool
	sequential       bool
	keepTimeunits    bool
	inferDotStarFlag bool
	verbose          bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svpickle [files...]",
		Short: "Pickle a SystemVerilog source tree into a single file",
		RunE:  runPickle,
	}
	f := cmd.Flags()
	f.StringSliceVarP(&includeDirs, "incdir", "I", nil, "add a directory to the include search path")
	f.StringArrayVarP(&defines, "define", "D", nil, "define a preprocessor macro, NAME or NAME=VALUE")
	f.StringArrayVarP(&excludeRename, "exclude-rename", "e", nil, "exclude a declaration from renaming")
	f.StringArrayVar(&exclude, "exclude", nil, "exclude a declaration entirely from the output")
	f.StringVarP(&prefix, "prefix", "p", "", "prepend a prefix to every renamed declaration")
	f.StringVarP(&suffix, "suffix", "s", "", "append a suffix to every renamed declaration")
	f.BoolVarP(&preprocessOnly, "preproc", "E", false, "stop after preprocessing, emit the raw expansion")
	f.StringArrayVarP(&fileLists, "file-list", "f", nil, "read an input bundle manifest (JSON array of FileBundle) from path")
	f.StringArrayVar(&flistFiles, "flist", nil, "read a list of source files and +define+/+incdir+ tokens from path")
	f.BoolVar(&stripComments, "strip-comments", false, "strip // and /* */ comments from the output")
	f.StringVarP(&outputPath, "output", "o", "-", "write pickled output to path (- for stdout)")
	f.StringArrayVar(&libraryFiles, "library-file", nil, "register a single file as a library module")
	f.StringArrayVarP(&libraryDirs, "library-dir", "y", nil, "register every .v/.sv file in a directory as a library module")
	f.StringVar(&manifestPath, "manifest", "", "write a JSON manifest describing the run to path")
	f.StringVar(&topModule, "top", "", "prune the dependency graph to what's reachable from this module")
	f.StringVar(&graphFile, "graph_file", "", "write a Graphviz dependency graph to path")
	f.BoolVarP(&ignoreUnparsable, "ignore_unparseable", "i", false, "warn instead of aborting on a parse failure")
	f.BoolVar(&keepDefines, "keep_defines", false, "keep `define directives in the output instead of stripping them")
	f.BoolVar(&propagateDefines, "propagate_defines", false, "carry a file's macro table into files parsed after it")
	f.BoolVarP(&sequential, "sequential", "q", false, "parse files one at a time instead of in parallel")
	f.BoolVar(&keepTimeunits, "keep_timeunits", false, "keep timeunit/timeprecision declarations in the output")
	f.BoolVar(&inferDotStarFlag, "infer_dot_star", false, "expand `.*` port connections into explicit connections")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runPickle(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	paths, bundles, extraIncdirs, extraDefines, err := collectSources(args)
	if err != nil {
		return err
	}
	includeDirs = append(includeDirs, extraIncdirs...)
	defines = append(defines, extraDefines...)

	parallel := 0
	if sequential {
		parallel = 1
	}

	var reportErr error
	h := reporter.Reporter{
		Error: func(e reporter.ErrorWithPos) error {
			if ignoreUnparsable {
				logger.Warn(e.Error())
				return nil
			}
			logger.Error(e.Error())
			reportErr = e
			return e
		},
		Warning: func(e reporter.ErrorWithPos) {
			logger.Warn(e.Error())
		},
	}

	p := pickle.New(pickle.Config{
		IncludeDirs:      includeDirs,
		Defines:          parseDefines(defines),
		StripComments:    stripComments,
		MaxParallelism:   parallel,
		PropagateDefines: propagateDefines,
		Reporter:         h,
	})

	if len(libraryDirs) > 0 || len(libraryFiles) > 0 {
		if err := p.AddLibs(libraryDirs, libraryFiles); err != nil {
			return err
		}
	}

	if err := p.AddFiles(context.Background(), paths); err != nil {
		return err
	}
	if len(bundles) > 0 {
		if err := p.AddBundles(context.Background(), bundles); err != nil {
			return err
		}
	}
	if reportErr != nil {
		return reportErr
	}

	if preprocessOnly {
		return writeOutput(outputPath, p.PreprocessOnly())
	}

	p.BuildGraph()
	if topModule != "" {
		if err := p.PruneGraph(topModule); err != nil {
			return err
		}
	}
	if !keepDefines {
		p.RemoveMacros()
	}
	if !keepTimeunits {
		p.RemoveTimeunits()
	}
	if inferDotStarFlag {
		p.InferDotStar()
	}
	if prefix != "" || suffix != "" {
		p.Rename(prefix, suffix, toSet(excludeRename))
	}

	out, err := p.Pickle(true, toSet(exclude), time.Now())
	if err != nil {
		return err
	}
	if err := writeOutput(outputPath, out); err != nil {
		return err
	}

	if manifestPath != "" {
		m := p.Manifest(includeDirs, parseDefines(defines), bundles)
		data, err := emit.MarshalManifest(m)
		if err != nil {
			return err
		}
		if err := os.WriteFile(manifestPath, append(data, '\n'), 0o644); err != nil {
			return err
		}
	}
	if graphFile != "" {
		if err := os.WriteFile(graphFile, p.Dot(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func parseDefines(raw []string) parser.Defines {
	out := parser.Defines{}
	for _, d := range raw {
		if eq := strings.IndexByte(d, '='); eq >= 0 {
			val := d[eq+1:]
			out[d[:eq]] = &val
		} else {
			out[d] = nil
		}
	}
	return out
}

// collectSources merges bare file arguments with --file-list and --flist
// inputs. Each `--file-list`/`-f` path is an input bundle manifest: a JSON
// array of bundle.FileBundle, each with its own include dirs and defines,
// returned separately so the caller can parse every bundle against its own
// configuration rather than folding its files into the flat path list. A
// `--flist` file, by contrast, may additionally contain
// `+define+NAME=VALUE` and `+incdir+PATH` tokens interleaved with plain
// file paths, which are pulled out and returned separately rather than
// treated as source paths.
func collectSources(args []string) (paths []string, bundles []bundle.FileBundle, incdirs, defs []string, err error) {
	paths = append(paths, args...)
	for _, lp := range fileLists {
		data, err := os.ReadFile(lp)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("reading %q: %w", lp, err)
		}
		var bs []bundle.FileBundle
		if err := gojson.Unmarshal(data, &bs); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("parsing bundle manifest %q: %w", lp, err)
		}
		bundles = append(bundles, bs...)
	}
	for _, fp := range flistFiles {
		lines, err := readLines(fp)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "+define+"):
				defs = append(defs, strings.TrimPrefix(line, "+define+"))
			case strings.HasPrefix(line, "+incdir+"):
				incdirs = append(incdirs, strings.TrimPrefix(line, "+incdir+"))
			default:
				paths = append(paths, line)
			}
		}
	}
	return paths, bundles, incdirs, defs, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
