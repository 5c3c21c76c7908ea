// Package app contains the core application logic: it loads graph files,
// compiles them into an in-memory document and reports the result. It is
// decoupled from any specific entrypoint like a CLI.
package app
