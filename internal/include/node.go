package include

import (
	"strings"
	"sync"

	"github.com/vk/htmlinclude/internal/params"
)

// State is the resolution state of a node.
type State int32

const (
	// Unstarted nodes render their fallback content.
	Unstarted State = iota
	// Fetching means the node waits for its fragment text.
	Fetching
	// Resolving means the fragment is rendered and children are resolving.
	Resolving
	// Resolved means the node and all of its children have settled.
	Resolved
	// Failed means the node could not be resolved; it renders an error marker.
	Failed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Fetching:
		return "fetching"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// segment is one piece of a node's rendered markup: literal text, or a
// child include element.
type segment struct {
	text  string
	child *Node
}

// Node is one occurrence of an include in the document tree.
type Node struct {
	// Local holds the parameters declared on the include element itself.
	Local *params.Set
	// Params is the effective parameter set: the parent's, overridden by Local.
	Params *params.Set
	// Fallback is the markup shown while the node is not resolved.
	Fallback string

	// startTag and endTag wrap the node's content when its parent renders.
	startTag string
	endTag   string
	parent   *Node

	mu       sync.RWMutex
	source   string
	state    State
	markup   string
	segments []segment
	children []*Node
	err      error
	// gen identifies the current resolution; results of older ones are dropped.
	gen      uint64
	detached bool
}

func newNode(source string, local, inherited *params.Set, parent *Node) *Node {
	return &Node{
		Local:  local,
		Params: params.Merge(inherited, local),
		parent: parent,
		source: source,
	}
}

// Source returns the fragment source the node currently resolves.
func (n *Node) Source() string {
	return n.currentSource()
}

func (n *Node) currentSource() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.source
}

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// State returns the node's current state.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Err returns the failure of a Failed node.
func (n *Node) Err() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.err
}

// Markup returns the node's own fragment after templating, with child include
// elements left unresolved.
func (n *Node) Markup() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.markup
}

// Children returns the include nodes discovered in the node's markup.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Detached reports whether the node was removed from its tree.
func (n *Node) Detached() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.detached
}

// Render composes the node's content: its markup with every child element
// filled with the child's own rendered content.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	switch {
	case n.state == Failed:
		b.WriteString(errorMarker(n.source, n.err))
	case n.segments != nil:
		for _, seg := range n.segments {
			if seg.child == nil {
				b.WriteString(seg.text)
				continue
			}
			b.WriteString(seg.child.startTag)
			seg.child.render(b)
			b.WriteString(seg.child.endTag)
		}
	default:
		b.WriteString(n.Fallback)
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the subtree of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// Failures returns every Failed node of the tree rooted at n.
func (n *Node) Failures() []*Node {
	var failed []*Node
	n.Walk(func(c *Node) bool {
		if c.State() == Failed {
			failed = append(failed, c)
			return false
		}
		return true
	})
	return failed
}

// begin starts a new resolution of n, switching to source when it is not
// empty, and returns its generation and source. Children of a previous
// resolution are detached. ok is false for detached nodes.
func (n *Node) begin(source string) (gen uint64, current string, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.detached {
		return 0, "", false
	}
	if source != "" {
		n.source = source
	}
	for _, c := range n.children {
		c.detach()
	}
	n.gen++
	n.state = Fetching
	n.markup = ""
	n.segments = nil
	n.children = nil
	n.err = nil
	return n.gen, n.source, true
}

// current reports whether gen is still the live resolution of n.
func (n *Node) current(gen uint64) bool {
	return !n.detached && n.gen == gen
}

func (n *Node) attach(gen uint64, markup string, segments []segment, children []*Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.current(gen) {
		return false
	}
	n.state = Resolving
	n.markup = markup
	n.segments = segments
	n.children = children
	return true
}

func (n *Node) settle(gen uint64, state State, err error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.current(gen) {
		return false
	}
	n.state = state
	n.err = err
	if state == Unstarted {
		for _, c := range n.children {
			c.detach()
		}
		n.segments = nil
		n.children = nil
	}
	return true
}

// detach marks n and its subtree as removed.
func (n *Node) detach() {
	n.mu.Lock()
	children := n.children
	n.detached = true
	n.mu.Unlock()
	for _, c := range children {
		c.detach()
	}
}
