/*
Package builder turns declarative node and link declarations into a live graph
inside a host document, and keeps that graph in step with the declarations
across repeated compiles.

A GraphBuilder owns one scope: a frame node in the document identified by its
label and by a persisted id. Callers queue declarations with AddNode and Link,
then call Compile. Compiling is incremental. Nodes whose identifier and kind
are unchanged are reused, so user edits to their properties survive unless
the declaration forces them. Nodes that change kind are replaced and nodes that
are no longer declared are removed, links first.

Every scope has an implicit interface of boundary ports: passthrough nodes
created on demand when a link references the Start or End sentinel, or when a
parent builder wires this builder in as a nested subgraph.

Adjustable scopes are meant to be edited by hand after the first compile.
Unknown nodes in them are never removed, programmatic links are ignored unless
forced, and the links found in the document are taken as the declared ones on
the next compile.

Compile is not transactional. If a link cannot be resolved, the nodes and
links materialized so far stay in the document, the builder is left not
compiled and the next successful Compile converges the scope.
*/
package builder
