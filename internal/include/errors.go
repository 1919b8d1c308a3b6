package include

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CycleError reports a fragment that includes one of its own ancestors.
type CycleError struct {
	Source string
	// Chain lists the sources from the root down to and including Source.
	Chain []string
}

func (e *CycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

// errorMarker is the markup rendered in place of a failed node.
func errorMarker(source string, err error) string {
	return fmt.Sprintf(`<pre style="color:red;">Error loading "%s": %s</pre>`,
		html.EscapeString(source), html.EscapeString(err.Error()))
}

// chain is the immutable list of sources being resolved above a node.
type chain struct {
	source string
	parent *chain
}

func (c *chain) push(source string) *chain {
	return &chain{source: source, parent: c}
}

func (c *chain) contains(source string) bool {
	for ; c != nil; c = c.parent {
		if c.source == source {
			return true
		}
	}
	return false
}

// sources returns the chain root first.
func (c *chain) sources() []string {
	var out []string
	for ; c != nil; c = c.parent {
		out = append(out, c.source)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// chainOf rebuilds the chain of n's ancestors.
func chainOf(n *Node) *chain {
	var ancestors []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		ancestors = append(ancestors, p.currentSource())
	}
	var c *chain
	for i := len(ancestors) - 1; i >= 0; i-- {
		c = c.push(ancestors[i])
	}
	return c
}
