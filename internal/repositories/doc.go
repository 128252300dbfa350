// Package repositories implements SQLite persistence for the listening library.
//
// Catalog entities (tracks, albums, artists) are keyed by their Spotify id
// and written with INSERT OR IGNORE: a duplicate key during concurrent
// ingestion is expected and treated as success, which is what keeps the store
// free of duplicate reference data without coordination between resolvers.
//
// Key implementations:
//   - [CatalogRepository] : id-set lookups and duplicate-tolerant inserts for
//     tracks, albums, and artists
//   - [ListenRepository] : append-only listen events, idempotent on the
//     (user, played_at, track) key
//   - [UserRepository] : credential storage and the two watermark updates,
//     last-synced (unconditional overwrite) and first-listened (min-merge)
//
// All repositories accept a [DBTX], so the ingestion transaction can bind
// them to a [sql.Tx] while everything else uses the shared [sql.DB] pool.
// List columns (artist ids, genres, images) are stored as JSON text.
package repositories
