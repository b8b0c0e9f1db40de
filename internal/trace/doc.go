// Package trace provides lightweight event tracing for the language server.
//
// Tracing is aimed at diagnosing slow or stuck checks: every document run and,
// at the most verbose level, every checker round trip can be recorded.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	spelgud lsp --trace=/tmp/spelgud.trace --trace-level=document
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelSession: Session lifecycle (initialize, shutdown, dictionary edits)
//   - LevelDocument: Per-document runs and publications
//   - LevelDebug: Everything including individual checker requests
//
// # Context Propagation
//
// Tracers travel with the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeDocument, "run", parentID)
//	defer span.End("")
package trace
