// Package rules evaluates the dependency rules of a form after a field change.
package rules
