// Package layout assigns levels and positions to the items of one scope.
//
// Levels come from a backward longest-path walk: sinks (items that never
// feed another item) sit at level 0 and every edge pushes its source at least
// one level deeper than its target. Layers are then placed right to left,
// starting from the sinks, and items stack top to bottom inside a layer.
//
// Nested subgraphs are opaque blocks here. The engine only decides where a
// block goes and hands it the offset; the block lays out its own contents.
// Nothing is carried between runs.
package layout
