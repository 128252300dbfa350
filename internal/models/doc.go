// Package models defines domain entities for the Replay listening history service.
//
// Catalog entities ([Track], [Album], [Artist]) use the Spotify id as their
// natural primary key and are treated as append-only reference data: inserted
// on first encounter across any user, never updated afterwards. [Track] holds
// its album and artists as id references; the referenced entities either
// already exist in the store or arrive in the same ingestion batch.
//
// [Listen] rows record individual plays and are immutable. [User] carries the
// OAuth credential triple (access token, refresh token, expiry) plus two
// monotonic watermarks:
//
//   - LastSyncedAt never decreases; it bounds incremental history polling.
//   - FirstListenedAt never increases; it tracks the earliest play ever seen.
package models
