// Package server provides the HTTP surfaces of replay: the one-shot OAuth
// callback used during account linking, and the Prometheus scrape endpoint
// served alongside a liveness probe.
//
// # Design
//
// Handlers implement the [Handler] interface (ServeHTTP plus Routes) so a
// [Router] can register them without knowing their paths. [BasicRouter] backs
// the interface with a plain [net/http.ServeMux] and a middleware chain.
//
// # OAuth flow
//
// [OAuthHandler] serves exactly one callback. The CLI starts a local server,
// opens the authorization URL in a browser, and blocks on [OAuthHandler.Result]
// until the exchange completes or fails. Subsequent hits on the callback are
// rejected.
package server
