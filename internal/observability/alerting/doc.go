// Package alerting forwards agent Alert decisions to notification channels
// once they reach a configured severity.
package alerting
