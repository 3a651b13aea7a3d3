/*
Package form turns read-only form definitions into per-session form instances.

A Definition is loaded once at startup and shared. Instantiate builds the
component tree, the fields and the validated rule set for one session; the
resulting Form can be snapshotted and restored for rollback and persistence.
*/
package form
