// internal/nodeid/doc.go

/*
Package nodeid owns the rules for node identifiers and the structured form of
qualified node addresses.

An identifier is the stable, caller-chosen key of a declared node inside one
scope. It must be non-empty and must not contain Separator. Labels that do
contain the separator (see Join) are reserved for builder-owned nodes such as
boundary ports, which is what keeps them out of the identifier namespace.

An Address is the dot-separated path `outer.inner.node[2]`: the scope chain,
the identifier, and optionally a port index on the last segment.
*/
package nodeid
