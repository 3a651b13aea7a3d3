// Package mcp exposes a formwire kernel as Model Context Protocol tools, so
// an agent can open a form, fill it field by field and read back the
// command lists a browser would receive.
package mcp
