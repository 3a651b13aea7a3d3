// Package redis provides the Redis-backed session store and distributed
// locker used when several replicas share sessions.
package redis
