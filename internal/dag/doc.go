// Package dag is a small, string-keyed directed graph. The layering engine
// loads one scope's items and edges into it to find sinks, walk edges
// backwards from targets to sources, and check for cycles before assigning
// levels.
package dag
