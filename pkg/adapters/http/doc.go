// Package http serves a formwire kernel over HTTP.
//
// Request bodies are validated against the embedded OpenAPI document before
// reaching a handler. Event responses are the command lists exactly as the
// kernel dispatched them; GET /sessions/{id}/stream replays them as
// server-sent events.
//
// Routes are registered through ServerInterface, which mirrors the
// operations of the document; path parameters are bound with the
// oapi-codegen runtime.
package http
