// Package graph builds the dependency graph over an index's declared and
// used names (component E), prunes it to what is reachable from a chosen
// top, and produces a deterministic topological emission order.
package graph

import (
	"sort"

	art "github.com/kralicky/go-adaptive-radix-tree"

	"github.com/pulp-platform/svpickle/ast"
	"github.com/pulp-platform/svpickle/index"
	"github.com/pulp-platform/svpickle/reporter"
)

// Graph is a name-keyed directed graph: an edge A->B means "A's body
// instantiates or imports B". Nodes are kept in an adaptive radix tree so
// that iteration is always lexically sorted, which both the topological
// tie-break rule and DOT/manifest emission rely on for determinism.
type Graph struct {
	nodes art.Tree // string -> *Node
}

// Node is one declared-or-used name in the graph.
type Node struct {
	Name string
	Decl *index.Declaration // nil if the name is used but never declared
	Out  map[string]bool    // names this node depends on
}

// Build constructs a Graph from every Declaration/Usage pair registered in
// ix: an edge is added from the enclosing declaration to each name it
// references, plus an edge from every declaration to each package its
// containing file imports at file scope (ix.GlobalImports), since those
// imports are siblings of the declaration in the file's AST rather than
// descendants of it and so are never seen by the ast.Inspect walk below.
func Build(ix *index.Index) *Graph {
	g := &Graph{nodes: art.New()}
	for _, name := range ix.Names() {
		g.ensure(name, ix.Declaration(name))
	}
	for _, fromName := range ix.Names() {
		decl := ix.Declaration(fromName)
		if decl == nil || decl.Decl == nil {
			continue
		}
		ast.Inspect(decl.Decl, func(n ast.Node) bool {
			toName, ok := targetName(n)
			if ok {
				g.addEdge(fromName, toName)
			}
			return true
		})
		for _, imp := range ix.GlobalImports(decl.File) {
			g.addEdge(fromName, imp)
		}
	}
	return g
}

func targetName(n ast.Node) (string, bool) {
	switch v := n.(type) {
	case *ast.ModuleInstantiation:
		return v.Target.Name, true
	case *ast.InterfaceInstantiation:
		return v.Target.Name, true
	case *ast.InterfacePortHeader:
		return v.Target.Name, true
	case *ast.PackageImportItem:
		return v.Target.Name, true
	case *ast.PackageScope:
		return v.Target.Name, true
	case *ast.ClassScope:
		return v.Target.Name, true
	}
	return "", false
}

func (g *Graph) ensure(name string, decl *index.Declaration) *Node {
	key := art.Key(name)
	if v, ok := g.nodes.Search(key); ok {
		n := v.(*Node)
		if n.Decl == nil && decl != nil {
			n.Decl = decl
		}
		return n
	}
	n := &Node{Name: name, Decl: decl, Out: map[string]bool{}}
	g.nodes.Insert(key, n)
	return n
}

func (g *Graph) addEdge(from, to string) {
	g.ensure(from, nil).Out[to] = true
	g.ensure(to, nil)
}

// Node looks up a node by name, or nil if it doesn't exist.
func (g *Graph) Node(name string) *Node {
	if v, ok := g.nodes.Search(art.Key(name)); ok {
		return v.(*Node)
	}
	return nil
}

// Names returns every node name in lexical order.
func (g *Graph) Names() []string {
	var out []string
	g.nodes.ForEach(func(n art.Node) bool {
		out = append(out, string(n.Key()))
		return true
	})
	return out
}

// Prune returns the subgraph reachable from top via a BFS over Out edges,
// plus top itself. It returns a TopNotFoundError if top has no node.
func (g *Graph) Prune(top string) (*Graph, error) {
	root := g.Node(top)
	if root == nil {
		return nil, &reporter.TopNotFoundError{Name: top}
	}
	reached := map[string]bool{top: true}
	queue := []string{top}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node := g.Node(cur)
		if node == nil {
			continue
		}
		outs := make([]string, 0, len(node.Out))
		for n := range node.Out {
			outs = append(outs, n)
		}
		sort.Strings(outs)
		for _, next := range outs {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	pruned := &Graph{nodes: art.New()}
	for _, name := range g.Names() {
		if !reached[name] {
			continue
		}
		n := g.Node(name)
		newOut := map[string]bool{}
		for o := range n.Out {
			if reached[o] {
				newOut[o] = true
			}
		}
		pruned.nodes.Insert(art.Key(name), &Node{Name: n.Name, Decl: n.Decl, Out: newOut})
	}
	return pruned, nil
}

// Undefined returns, in lexical order, every node name with no
// Declaration (a usage that resolved to nothing, even after library
// resolution).
func (g *Graph) Undefined() []string {
	var out []string
	for _, name := range g.Names() {
		if g.Node(name).Decl == nil {
			out = append(out, name)
		}
	}
	return out
}

// TopologicalOrder returns names in dependency-first order (a name always
// appears after every name it depends on), breaking ties among
// simultaneously-ready nodes by picking the lexically smallest name, which
// the radix tree's sorted iteration gives for free. It returns a
// reporter.CycleError if the graph is not a DAG.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := map[string]int{}
	names := g.Names()
	for _, name := range names {
		indegree[name] = 0
	}
	for _, name := range names {
		for out := range g.Node(name).Out {
			indegree[out]++
		}
	}
	// Emission order is dependency-first: a node with no *incoming* edges
	// from within the remaining set has nothing left depending on it, so
	// this performs a reverse Kahn's algorithm by removing nodes whose
	// out-degree (within the remaining set) is zero, lexically smallest
	// first, mirroring the original implementation's
	// "remove zero out-degree nodes" loop.
	remaining := map[string]map[string]bool{}
	for _, name := range names {
		out := map[string]bool{}
		for o := range g.Node(name).Out {
			out[o] = true
		}
		remaining[name] = out
	}
	var order []string
	for len(remaining) > 0 {
		var ready []string
		for name, out := range remaining {
			if len(out) == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			var cyc []string
			for name := range remaining {
				cyc = append(cyc, name)
			}
			sort.Strings(cyc)
			return nil, &reporter.CycleError{Names: cyc}
		}
		sort.Strings(ready)
		pick := ready[0]
		order = append(order, pick)
		delete(remaining, pick)
		for _, out := range remaining {
			delete(out, pick)
		}
	}
	return order, nil
}
