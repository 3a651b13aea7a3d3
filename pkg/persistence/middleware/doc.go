// Package middleware wraps a ports.SessionStore with sealing (AES-GCM with
// key rotation) and masking of sensitive field values.
package middleware
