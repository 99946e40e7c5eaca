// Package api exposes the indexer, inference and chain explorer operations
// over HTTP. Every route lives under /api and answers with JSON; failures
// carry {"error":{"code","message"}} with a status derived from the error
// code.
package api
