/*
Package session implements per-session UI state and its lifecycle.

A Session owns one component tree and form instance. The Manager opens
sessions on login, serializes the event cycles of each session with a
reference-counted lock (optionally backed by a distributed lock across
replicas), persists state after every successful cycle and tears sessions
down on logout or idle timeout.
*/
package session
