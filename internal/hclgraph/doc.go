// Package hclgraph loads kind schemas and scope declarations from HCL files
// and applies them to graph builders.
//
// A file may contain any number of top-level `kind` and `scope` blocks. Kind
// blocks become memdoc schemas; scope blocks become builder declarations,
// with nested `scope` blocks turning into nested builders that links can
// address as `scope.<name>`.
package hclgraph
