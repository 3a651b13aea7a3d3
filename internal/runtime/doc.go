// Package runtime implements the form event loop.
//
// One call to Engine.Process is one event cycle:
//
//	IDLE -> EVENT_RECEIVED -> RULES_EVALUATED -> TREE_DIFFED -> COMMANDS_BUILT -> DISPATCHED -> IDLE
//
// The engine holds no session state of its own. Callers serialize cycles per
// session, normally through session.Manager.WithSession.
package runtime
