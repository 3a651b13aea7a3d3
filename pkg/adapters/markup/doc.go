// Package markup provides a Renderer that emits content-addressed tokens
// instead of HTML.
package markup
