// Package llm turns inference requests into answers. It fingerprints each
// request, serves repeats from a response cache, tries the configured
// inference backends in priority order and, when none of them produce text,
// answers with a deterministic per-task canned response.
package llm
