package emit

import (
	gojson "github.com/goccy/go-json"

	"github.com/pulp-platform/svpickle/bundle"
	"github.com/pulp-platform/svpickle/graph"
	"github.com/pulp-platform/svpickle/index"
)

// Manifest builds the JSON manifest describing a pickle run: the
// surviving top-level modules (nodes nobody in the pruned graph
// instantiates), the names that were used but never declared, and the
// file bundles that contributed source, merging any bundle whose include
// dirs and defines exactly match baseDirs/baseDefines into one entry, the
// same collapsing rule the original implementation's write_manifest
// applies. The base entry lists only the files of the matching
// extraBundles plus usedLibs: files parsed outside any bundle are not
// listed, and no file list is filtered by which declarations survived
// pruning.
func Manifest(g *graph.Graph, ix *index.Index, baseDirs []string, baseDefines map[string]*string, usedLibs []string, extraBundles []bundle.FileBundle) *bundle.Manifest {
	instantiated := map[string]bool{}
	for _, name := range g.Names() {
		n := g.Node(name)
		for out := range n.Out {
			instantiated[out] = true
		}
	}
	var tops []string
	for _, name := range g.Names() {
		if g.Node(name).Decl != nil && !instantiated[name] {
			tops = append(tops, name)
		}
	}

	var baseFiles []string
	var bundles []bundle.FileBundle
	for _, b := range extraBundles {
		if sameConfig(b, baseDirs, baseDefines) {
			baseFiles = append(baseFiles, b.Files...)
		} else {
			bundles = append(bundles, b)
		}
	}
	baseFiles = append(baseFiles, usedLibs...)
	bundles = append(bundles, bundle.FileBundle{
		IncludeDirs: baseDirs,
		Defines:     baseDefines,
		Files:       baseFiles,
	})

	return &bundle.Manifest{
		Sources:   bundles,
		Tops:      tops,
		Undefined: g.Undefined(),
	}
}

func sameConfig(b bundle.FileBundle, dirs []string, defines map[string]*string) bool {
	if len(b.IncludeDirs) != len(dirs) || len(b.Defines) != len(defines) {
		return false
	}
	for i, d := range dirs {
		if b.IncludeDirs[i] != d {
			return false
		}
	}
	for k, v := range defines {
		bv, ok := b.Defines[k]
		if !ok {
			return false
		}
		if (v == nil) != (bv == nil) {
			return false
		}
		if v != nil && bv != nil && *v != *bv {
			return false
		}
	}
	return true
}

// MarshalManifest renders m as pretty-printed JSON using goccy/go-json, a
// drop-in encoding/json-compatible encoder.
func MarshalManifest(m *bundle.Manifest) ([]byte, error) {
	return gojson.MarshalIndent(m, "", "  ")
}
