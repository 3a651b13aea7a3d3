/*
Package observability provides lifecycle hooks for monitoring the event loop.

Metrics records Prometheus counters and a duration histogram per cycle,
LoggingHooks writes a structured trail, and Combine merges several hook sets
into the single domain.LifecycleHooks the loop accepts.
*/
package observability
