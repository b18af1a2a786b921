// Package core defines the domain model shared by the feed pipeline, the
// materialized snapshot and the query service.
//
// # Data flow
//
// A run walks the configured FeedDescriptor list in order. Each feed's raw
// text is cached as a CacheEntry, normalized into IOC strings and merged into
// an IOCSet. The run ends with an AggregatedResult whose persisted form is a
// Snapshot: the sorted indicator list plus the RunStats of that run.
//
// An IOC is an opaque, case-preserved, whitespace-trimmed string. No type
// classification (IP, domain, URL) is attempted anywhere in the model.
package core
