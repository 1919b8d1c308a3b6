// Package include walks the graph of nested fragment inclusions.
//
// A Resolver turns a fragment source and a parameter set into a tree of
// Nodes. Each node fetches its fragment through a shared cache, renders the
// template language against its effective parameters and then discovers the
// include elements in the rendered markup. Every include element becomes a
// child node whose parameters are the parent's, overridden by the element's
// own data-* attributes. Children are resolved concurrently.
//
// A node moves through its states strictly in order:
//
//	Unstarted -> Fetching -> Resolving -> Resolved
//	                  \            \
//	                   `-> Failed   `-> Failed
//
// A failure is local to the node it happens on. It is rendered in place of
// the node's content and never aborts siblings or the parent. A node whose
// source is already one of its ancestors fails with a CycleError instead of
// recursing.
//
// Host adapters call Resolve once per page, Reresolve when a node's source
// changes and Detach when a node leaves the document. Results of resolutions
// that were superseded or detached are discarded.
package include
