// Package tasks implements the listening history ingestion pipeline.
//
// # Data flow
//
// One polling iteration moves through three stages:
//
//  1. [SyncEngine] polls the recently-played feed from the user's last-sync
//     watermark and builds the batch of played-track ids.
//  2. [Resolver.ResolveAndFetch] consults the store for tracks already known,
//     fetches only the unknown ones through the gateway, and transitively
//     resolves their unknown albums and artists. Items the upstream service
//     can no longer serve are dropped from the batch, never treated as a
//     batch failure. The returned [ResolvedBatch] is normalized (embedded
//     objects replaced by id references) and deduplicated by id.
//  3. [Ingestor.Apply] takes the process-wide write lock and, inside a real
//     SQLite transaction, persists the entities, appends the listen events,
//     and advances both watermarks: last-synced forward, first-listened
//     backward.
//
// # Failure policy
//
// An iteration that fails at any stage is logged and abandoned; the next poll
// retries from the last successfully advanced watermark. The ingest lock is
// released on every exit path, so a failed transaction never blocks later
// ones.
package tasks
