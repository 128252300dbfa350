// Package services implements the rate-limited gateway to the Spotify Web API.
//
// # Gateway
//
// Every outbound call passes through [Gateway], which owns a single worker
// goroutine draining a task channel: at most one request is in flight at any
// time for the whole process, in FIFO submission order. This single global
// lane is what keeps the process under the external rate limit.
//
// Each queued operation begins with the token-refresh sub-protocol: load the
// user's credential record, refresh the access token if it expires within two
// minutes, persist the new triple, then bind a request client to the resolved
// token. Because the lane is global, a refresh can never race the request it
// protects. If the gateway is ever sharded per user, the check-then-use
// sequence must become an atomic check-and-refresh behind a per-user lock.
//
// # Fetch semantics
//
// Per-entity helpers ([Gateway.Track], [Gateway.Album], [Gateway.Artist])
// return an absent value instead of an error when the upstream item cannot be
// served; a missing single item must not abort a batch fetch of many items.
// [Gateway.Search] is the exception: only a 404 becomes absent, everything
// else propagates. Credential failures ([shared.ErrUserNotFound],
// [shared.ErrNoLinkedAccount], [shared.ErrNoAccessToken]) always propagate
// and abort only the operation that hit them; the next queued operation gets
// its own independent token check.
//
// # Chunked writes
//
// Playlist additions are split into chunks of at most 100 ids with a pacing
// delay between chunks, issued while the operation still holds the lane.
//
// # Token provider
//
// [TokenProvider] abstracts the OAuth provider; [SpotifyProvider] implements
// it over [oauth2.Config] and also drives the authorization-code flow used by
// the account-linking CLI command.
package services
