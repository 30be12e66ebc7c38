package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pulp-platform/svpickle/graph"
)

// Dot renders g as a Graphviz "dot" digraph, one node per declared or used
// name and one edge per dependency, in lexical order for a deterministic
// diff-friendly output. No corpus dependency provides a Graphviz writer
// (the original implementation uses petgraph::dot, which has no retrieved
// Go equivalent), so this is a small, deliberate stdlib leaf.
func Dot(g *graph.Graph) []byte {
	var out strings.Builder
	out.WriteString("digraph pickle {\n")
	for _, name := range g.Names() {
		shape := "box"
		if g.Node(name).Decl == nil {
			shape = "box,style=dashed" // undefined: referenced but never declared
		}
		fmt.Fprintf(&out, "  %q [shape=%s];\n", name, shape)
	}
	for _, name := range g.Names() {
		n := g.Node(name)
		outs := make([]string, 0, len(n.Out))
		for o := range n.Out {
			outs = append(outs, o)
		}
		sort.Strings(outs)
		for _, o := range outs {
			fmt.Fprintf(&out, "  %q -> %q;\n", name, o)
		}
	}
	out.WriteString("}\n")
	return []byte(out.String())
}
