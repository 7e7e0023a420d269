// Package store implements a minimal REST client for a partitioned document
// store. It covers the surface the benchmark needs: document create/upsert
// against a container, database and collection lifecycle, and typed errors
// that carry the server-dictated retry-after interval for throttled calls.
package store
