// Package bundle defines the JSON-facing types shared between the pickle
// orchestrator and the emitter: the manifest written alongside pickled
// output, describing what went into it and what is still missing.
package bundle

// FileBundle groups a set of source files that were all parsed with the
// same include directories and defines, mirroring how morty's manifest
// merges file lists that share a preprocessing configuration into one
// entry instead of repeating it per file.
type FileBundle struct {
	IncludeDirs    []string            `json:"include_dirs"`
	ExportIncdirs  map[string][]string `json:"export_incdirs,omitempty"`
	Defines        map[string]*string  `json:"defines"`
	Files          []string            `json:"files"`
}

// LibrarySpec is one configured library search location (a directory or
// an explicit file list) along with the defines/include dirs used to
// preprocess any file resolved from it.
type LibrarySpec struct {
	IncludeDirs []string           `json:"include_dirs"`
	Defines     map[string]*string `json:"defines"`
	Files       map[string]string  `json:"files"` // module name -> path
}

// Manifest is the top-level JSON document describing one pickle run: the
// file bundles that went into it, the resulting top-level modules, and
// any names that were used but never declared.
type Manifest struct {
	Sources   []FileBundle `json:"sources"`
	Tops      []string     `json:"tops"`
	Undefined []string     `json:"undefined"`
}
