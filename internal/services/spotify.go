// Spotify wire types and OAuth2 token provider.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track with its album and artists embedded,
// the shape the API returns before normalization.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	AlbumType   string          `json:"album_type"`
	ReleaseDate string          `json:"release_date"`
	Genres      []string        `json:"genres"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyPlayedItem is one entry of the recently-played history feed.
type SpotifyPlayedItem struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt time.Time    `json:"played_at"`
}

// SpotifyRecentlyPlayed is the paginated recently-played response.
type SpotifyRecentlyPlayed struct {
	Items []SpotifyPlayedItem `json:"items"`
	Next  *string             `json:"next"`
}

type playlistOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       playlistOwner  `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// Normalize converts the track's embedded album and artist objects into id
// references for storage.
func (t SpotifyTrack) Normalize() models.Track {
	artistIDs := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		artistIDs = append(artistIDs, artist.ID)
	}

	return models.Track{
		ID:         t.ID,
		Name:       t.Name,
		AlbumID:    t.Album.ID,
		ArtistIDs:  artistIDs,
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
		Popularity: t.Popularity,
		URI:        t.URI,
	}
}

// Normalize converts the album's embedded artist objects into id references.
func (a SpotifyAlbum) Normalize() models.Album {
	artistIDs := make([]string, 0, len(a.Artists))
	for _, artist := range a.Artists {
		artistIDs = append(artistIDs, artist.ID)
	}

	return models.Album{
		ID:          a.ID,
		Name:        a.Name,
		ArtistIDs:   artistIDs,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		Genres:      a.Genres,
		Images:      normalizeImages(a.Images),
		URI:         a.URI,
	}
}

// Normalize converts the artist to its store shape.
func (r SpotifyArtist) Normalize() models.Artist {
	return models.Artist{
		ID:     r.ID,
		Name:   r.Name,
		Genres: r.Genres,
		Images: normalizeImages(r.Images),
		URI:    r.URI,
	}
}

func normalizeImages(images []SpotifyImage) []models.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.Image, len(images))
	for i, img := range images {
		out[i] = models.Image(img)
	}
	return out
}

// TokenProvider abstracts the OAuth provider's token mechanics: refreshing a
// credential and building a request-capable client bound to an access token.
type TokenProvider interface {
	// Refresh exchanges a refresh token for a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// Client returns an HTTP client that authorizes requests with the given access token.
	Client(ctx context.Context, accessToken string) *http.Client
}

// SpotifyProvider implements [TokenProvider] over [oauth2.Config] and also
// drives the initial authorization-code flow used when linking an account.
type SpotifyProvider struct {
	config *oauth2.Config
}

// NewSpotifyProvider creates a provider from Spotify app credentials.
func NewSpotifyProvider(clientID, clientSecret, redirectURI string) (*SpotifyProvider, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-read-recently-played",
			"user-modify-playback-state",
			"playlist-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyProvider{config: config}, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (p *SpotifyProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the initial token triple.
func (p *SpotifyProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Config exposes the underlying [oauth2.Config] for the callback server.
func (p *SpotifyProvider) Config() *oauth2.Config {
	return p.config
}

// Refresh exchanges a refresh token for a fresh access token.
func (p *SpotifyProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return token, nil
}

// Client returns an HTTP client that sends the access token as a Bearer header.
func (p *SpotifyProvider) Client(ctx context.Context, accessToken string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
}

// Profile fetches the profile behind a freshly exchanged token. Used once
// during account linking, before a stored account exists for the gateway to
// operate on.
func (p *SpotifyProvider) Profile(ctx context.Context, token *oauth2.Token) (*SpotifyUser, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: profile request returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var user SpotifyUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &user, nil
}
