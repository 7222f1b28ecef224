// Package logging wires log/slog for the daemon and CLI.
//
// Loggers are constructed once from config and injected into components; no
// package keeps an ambient global logger. The attr helpers and field-name
// constants keep structured keys consistent across the pipeline so logs can be
// filtered by component, item kind, and item id.
package logging
