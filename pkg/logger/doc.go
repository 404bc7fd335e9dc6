// Package logger builds configured log/slog loggers with JSON or text
// output, static attributes, and context extractors that attach
// request-scoped values (identity, tenant) to every record emitted while
// handling a request.
package logger
