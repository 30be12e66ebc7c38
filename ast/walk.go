package ast

// Visitor is implemented by callers of Walk. Before is called on entry to a
// node; if it returns false, the node and its children are skipped entirely
// (After is not called). Visit is called after Before returns true and
// returns the Visitor to use for the node's children (typically the
// receiver itself, or nil to prune descent). After is called once children
// have been walked.
type Visitor interface {
	Before(n Node) bool
	Visit(n Node) Visitor
	After(n Node)
}

// Walk performs a generic pre/post-order traversal of n using v, recursing
// into n.Children(). It makes no assumption about the concrete node types
// involved, so it works uniformly over every node defined in this package.
func Walk(v Visitor, n Node) {
	if n == nil || v == nil {
		return
	}
	if !v.Before(n) {
		return
	}
	if child := v.Visit(n); child != nil {
		for _, c := range n.Children() {
			Walk(child, c)
		}
	}
	v.After(n)
}

// BaseVisitor is embeddable by visitors that only need to override one or
// two methods. It supplies Before (always returns true) and After (a no-op)
// only; the embedding type implements Visit itself.
type BaseVisitor struct{}

func (BaseVisitor) Before(Node) bool { return true }
func (BaseVisitor) After(Node)       {}

// Inspect calls f for every node in the tree rooted at n, in pre-order,
// stopping a subtree's descent when f returns false for its root.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

type inspector func(Node) bool

func (f inspector) Before(n Node) bool { return true }
func (f inspector) Visit(n Node) Visitor {
	if f(n) {
		return f
	}
	return nil
}
func (f inspector) After(Node) {}
