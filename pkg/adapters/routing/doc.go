// Package routing resolves business paths to redirect URLs.
package routing
