// Package document defines the contract between the graph builder and the
// host document that owns the live graph.
//
// # Why Document Package Exists
//
// The builder never owns the nodes it materializes. They live in a host
// document that survives across sessions and that a user may edit by hand
// between rebuilds. This package is the boundary: the builder consumes these
// interfaces and the host (or internal/memdoc in tests and the CLI) implements
// them.
//
// # Identity
//
// Node, Port and Link values are transient handles. A handle may be
// invalidated by removal or replaced when a node is recreated, so consumers
// key their own bookkeeping by the persisted string label, never by handle.
//
// # Values
//
// Properties and port defaults are cty.Value. Values are immutable, so a
// captured value is already a structural copy of vectors, colors and lists.
package document
