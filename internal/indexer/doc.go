// Package indexer holds the real-time feed store and the bounded agent
// decision log. Both are memory-only and safe for concurrent use: readers
// share a lock and always observe fully applied writes.
package indexer
