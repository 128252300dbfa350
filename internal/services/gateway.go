package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/replay/internal/metrics"
	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/shared"
)

// tokenRefreshWindow refreshes the token if it expires in less than two
// minutes, absorbing clock skew and in-flight latency.
const tokenRefreshWindow = 120 * time.Second

// UserStore is the slice of the persistence layer the gateway needs for the
// per-operation token check. Implemented by repositories.UserRepository.
type UserStore interface {
	// User loads the credential record, returning [shared.ErrUserNotFound] when absent.
	User(id string) (*models.User, error)

	// SaveTokens persists a refreshed token triple.
	SaveTokens(id, accessToken, refreshToken string, expiresAt time.Time) error
}

// Gateway serializes every outbound Spotify call process-wide through a
// single worker goroutine: operations execute strictly one at a time in
// submission order, and each operation's token check runs before its request
// on the same lane, so a request can never race its own refresh.
//
// The single global lane trades throughput for a predictable peak call rate;
// it is what keeps the process under the external rate limit without a
// token-bucket scheme.
type Gateway struct {
	users    UserStore
	provider TokenProvider
	logger   *log.Logger

	baseURL    string
	timeout    time.Duration
	chunkSize  int
	chunkDelay time.Duration

	queue chan *operation

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// GatewayOpts contains configuration options for creating a [Gateway].
type GatewayOpts struct {
	Users      UserStore
	Provider   TokenProvider
	Logger     *log.Logger
	BaseURL    string        // defaults to the public Spotify API
	QueueSize  int           // pending operations buffered before enqueue blocks
	Timeout    time.Duration // per-request upper bound; 0 means no timeout
	ChunkSize  int           // max ids per playlist write call
	ChunkDelay time.Duration // pacing between successive write chunks
}

// operation is one queued unit of work. It may perform several underlying
// calls while it holds the lane.
type operation struct {
	ctx    context.Context
	userID string
	run    func(ctx context.Context, c *apiClient) error
	done   chan error
}

// NewGateway creates a gateway and starts its worker goroutine.
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	if opts.ChunkDelay <= 0 {
		opts.ChunkDelay = time.Second
	}

	g := &Gateway{
		users:      opts.Users,
		provider:   opts.Provider,
		logger:     opts.Logger,
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		chunkSize:  opts.ChunkSize,
		chunkDelay: opts.ChunkDelay,
		queue:      make(chan *operation, opts.QueueSize),
		now:        time.Now,
		sleep:      time.Sleep,
	}

	go g.work()

	return g
}

// Close stops the worker after all queued operations have drained.
// No operations may be enqueued after Close.
func (g *Gateway) Close() {
	close(g.queue)
}

// work drains the queue one operation at a time, awaiting each operation's
// full completion before dequeuing the next.
func (g *Gateway) work() {
	for op := range g.queue {
		metrics.GatewayQueueDepth.Dec()
		err := g.execute(op)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.GatewayOperationsTotal.WithLabelValues(outcome).Inc()

		op.done <- err
	}
}

// enqueue submits an operation and waits for its completion. Operations run
// to completion or failure; there is no mid-flight cancellation.
func (g *Gateway) enqueue(ctx context.Context, userID string, run func(ctx context.Context, c *apiClient) error) error {
	op := &operation{ctx: ctx, userID: userID, run: run, done: make(chan error, 1)}
	metrics.GatewayQueueDepth.Inc()
	g.queue <- op
	return <-op.done
}

// execute runs the token-refresh sub-protocol, then the operation's work with
// a client bound to the resolved access token.
func (g *Gateway) execute(op *operation) error {
	client, err := g.checkToken(op.ctx, op.userID)
	if err != nil {
		return err
	}
	return op.run(op.ctx, client)
}

// checkToken loads the user's credentials, refreshes them if they expire
// within the refresh window, and returns a request client bound to the
// resolved access token.
//
// A refreshed token is persisted before the protected request fires. A user
// without a refresh token is left on their prior token; the operation will
// surface the failure downstream if that token no longer works.
func (g *Gateway) checkToken(ctx context.Context, userID string) (*apiClient, error) {
	user, err := g.users.User(userID)
	if err != nil {
		return nil, err
	}
	if !user.Linked() {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoLinkedAccount, userID)
	}

	access := user.AccessToken
	if g.now().After(user.TokenExpiresAt.Add(-tokenRefreshWindow)) {
		if user.RefreshToken == "" {
			g.logger.Debug("token expiring with no refresh token", "user", userID)
		} else {
			token, err := g.provider.Refresh(ctx, user.RefreshToken)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
			}

			refresh := token.RefreshToken
			if refresh == "" {
				refresh = user.RefreshToken
			}
			if err := g.users.SaveTokens(userID, token.AccessToken, refresh, token.Expiry); err != nil {
				return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
			}

			metrics.TokenRefreshesTotal.Inc()
			g.logger.Info("refreshed token", "user", user.DisplayName)
			access = token.AccessToken
		}
	}

	if access == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoAccessToken, userID)
	}

	return &apiClient{
		base:    g.baseURL,
		http:    g.provider.Client(ctx, access),
		timeout: g.timeout,
	}, nil
}

// Get performs a serialized GET against the API, decoding the JSON response into result.
func (g *Gateway) Get(ctx context.Context, userID, path string, result any) error {
	return g.enqueue(ctx, userID, func(ctx context.Context, c *apiClient) error {
		return c.do(ctx, http.MethodGet, path, nil, result)
	})
}

// Put performs a serialized PUT with a JSON body.
func (g *Gateway) Put(ctx context.Context, userID, path string, body, result any) error {
	return g.enqueue(ctx, userID, func(ctx context.Context, c *apiClient) error {
		return c.do(ctx, http.MethodPut, path, body, result)
	})
}

// Post performs a serialized POST with a JSON body.
func (g *Gateway) Post(ctx context.Context, userID, path string, body, result any) error {
	return g.enqueue(ctx, userID, func(ctx context.Context, c *apiClient) error {
		return c.do(ctx, http.MethodPost, path, body, result)
	})
}

// Me retrieves the authenticated user's Spotify profile.
func (g *Gateway) Me(ctx context.Context, userID string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := g.Get(ctx, userID, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Track retrieves a single track by id.
//
// Request failures are swallowed: a track the upstream service can no longer
// serve returns (nil, nil) so that one missing item never aborts a batch.
// Credential failures still propagate.
func (g *Gateway) Track(ctx context.Context, userID, id string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := g.Get(ctx, userID, "/tracks/"+id, &track); err != nil {
		return nil, g.swallowFetchError(err, "track", id)
	}
	return &track, nil
}

// Album retrieves a single album by id, with the same absent-on-error
// semantics as [Gateway.Track].
func (g *Gateway) Album(ctx context.Context, userID, id string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := g.Get(ctx, userID, "/albums/"+id, &album); err != nil {
		return nil, g.swallowFetchError(err, "album", id)
	}
	return &album, nil
}

// Artist retrieves a single artist by id, with the same absent-on-error
// semantics as [Gateway.Track].
func (g *Gateway) Artist(ctx context.Context, userID, id string) (*SpotifyArtist, error) {
	var artist SpotifyArtist
	if err := g.Get(ctx, userID, "/artists/"+id, &artist); err != nil {
		return nil, g.swallowFetchError(err, "artist", id)
	}
	return &artist, nil
}

// swallowFetchError converts per-entity request failures into an absent
// result. Credential errors stay fatal for the operation.
func (g *Gateway) swallowFetchError(err error, kind, id string) error {
	if isCredentialError(err) {
		return err
	}
	g.logger.Debug("dropping unfetchable item", "kind", kind, "id", id, "err", err)
	return nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, shared.ErrUserNotFound) ||
		errors.Is(err, shared.ErrNoLinkedAccount) ||
		errors.Is(err, shared.ErrNoAccessToken) ||
		errors.Is(err, shared.ErrRefreshFailed)
}

// Search looks up a track by name and artist, returning the best match.
//
// A genuine 404 yields (nil, nil); any other failure propagates, unlike the
// per-entity fetch helpers.
func (g *Gateway) Search(ctx context.Context, userID, track, artist string) (*SpotifyTrack, error) {
	if len(track) > 100 {
		track = track[:100]
	}
	if len(artist) > 100 {
		artist = artist[:100]
	}

	query := url.QueryEscape("track:"+track) + "+" + url.QueryEscape("artist:"+artist)
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=10", query)

	var result struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := g.Get(ctx, userID, endpoint, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrSearchFailed, err)
	}

	if len(result.Tracks.Items) == 0 {
		return nil, nil
	}
	return &result.Tracks.Items[0], nil
}

// RecentlyPlayed retrieves the user's listen history after the given instant.
func (g *Gateway) RecentlyPlayed(ctx context.Context, userID string, after time.Time) ([]SpotifyPlayedItem, error) {
	endpoint := "/me/player/recently-played?limit=50"
	if !after.IsZero() {
		endpoint += fmt.Sprintf("&after=%d", after.UnixMilli())
	}

	var page SpotifyRecentlyPlayed
	if err := g.Get(ctx, userID, endpoint, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Playlists retrieves all of the user's playlists, following the next-cursor
// link until the service reports no further page. Every page fetch re-enters
// the gateway as its own queued operation.
func (g *Gateway) Playlists(ctx context.Context, userID string) ([]SpotifyPlaylist, error) {
	var items []SpotifyPlaylist

	next := "/me/playlists?limit=50"
	for next != "" {
		var page SpotifyPaginatedPlaylists
		if err := g.Get(ctx, userID, next, &page); err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		if page.Next == nil {
			break
		}
		next = *page.Next
	}

	return items, nil
}

// CreatePlaylist creates a public playlist and fills it with the given track
// ids, chunked to the API's per-call limit. The whole create-and-fill runs as
// one queued operation so no other caller can observe a half-built playlist.
func (g *Gateway) CreatePlaylist(ctx context.Context, userID, name string, trackIDs []string) (*SpotifyPlaylist, error) {
	var created SpotifyPlaylist

	err := g.enqueue(ctx, userID, func(ctx context.Context, c *apiClient) error {
		body := map[string]any{
			"name":          name,
			"public":        true,
			"collaborative": false,
			"description":   "",
		}
		if err := c.do(ctx, http.MethodPost, "/me/playlists", body, &created); err != nil {
			return err
		}
		return g.addTracksChunked(ctx, c, created.ID, trackIDs)
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// AddToPlaylist appends track ids to an existing playlist, chunked to the
// API's per-call limit.
func (g *Gateway) AddToPlaylist(ctx context.Context, userID, playlistID string, trackIDs []string) error {
	return g.enqueue(ctx, userID, func(ctx context.Context, c *apiClient) error {
		return g.addTracksChunked(ctx, c, playlistID, trackIDs)
	})
}

// PlayTrack starts playback of the given track uri on the user's active device.
func (g *Gateway) PlayTrack(ctx context.Context, userID, trackURI string) error {
	return g.Put(ctx, userID, "/me/player/play", map[string]any{"uris": []string{trackURI}}, nil)
}

// APIError is a non-2xx response from the external API.
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d on %s", e.Status, e.Path)
}

// apiClient is a request client bound to a resolved access token for the
// duration of one gateway operation.
type apiClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// do performs an HTTP request with an optional JSON body, decoding the JSON
// response into result when non-nil. Paths starting with "/" are resolved
// against the API base; absolute URLs (pagination cursors) pass through.
func (c *apiClient) do(ctx context.Context, method, endpoint string, body, result any) error {
	apiURL := endpoint
	if strings.HasPrefix(endpoint, "/") {
		apiURL = c.base + endpoint
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Path: endpoint}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
