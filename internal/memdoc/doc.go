// Package memdoc provides a simple, thread-safe, in-memory implementation of
// the document.Document interface.
//
// It plays the host role for tests and for the CLI: nodes are typed by
// registered kind schemas, links connect output sockets to input sockets, and
// every structural mutation is appended to a journal so callers can assert on
// ordering. Scope lookups go through an LRU cache that belongs to the
// document instance, so two documents never share lookup state.
package memdoc
