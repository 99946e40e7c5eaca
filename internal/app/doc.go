// Package app assembles the process-wide state: the indexer stores, the
// inference engine with its provider chain and cache tiers, the chain and
// market adapters, and the optional event bus. cmd/sentinelxd builds one
// State at start-up and hands it to the HTTP server by pointer.
package app
