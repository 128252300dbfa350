package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/replay/internal/metrics"
	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/services"
	"github.com/desertthunder/replay/internal/shared"
)

// CatalogFetcher is the slice of the gateway the resolver uses. Per-entity
// fetches return (nil, nil) for items the upstream service cannot serve.
type CatalogFetcher interface {
	Track(ctx context.Context, userID, id string) (*services.SpotifyTrack, error)
	Album(ctx context.Context, userID, id string) (*services.SpotifyAlbum, error)
	Artist(ctx context.Context, userID, id string) (*services.SpotifyArtist, error)
}

// CatalogStore is the slice of the persistence layer the resolver consults.
// Implemented by repositories.CatalogRepository.
type CatalogStore interface {
	TracksByID(ids []string) ([]models.Track, error)
	AlbumsByID(ids []string) ([]models.Album, error)
	ArtistsByID(ids []string) ([]models.Artist, error)
}

// ResolvedBatch holds the minimal set of new entities one polling iteration
// needs persisted: entities the store already had are excluded, and each list
// is deduplicated by id.
type ResolvedBatch struct {
	Tracks  []models.Track
	Albums  []models.Album
	Artists []models.Artist
}

// Empty reports whether the batch carries no new entities.
func (b *ResolvedBatch) Empty() bool {
	return len(b.Tracks) == 0 && len(b.Albums) == 0 && len(b.Artists) == 0
}

// Resolver turns a batch of played-track ids into the minimal set of missing
// entities to fetch, reusing whatever the store already has.
type Resolver struct {
	fetcher CatalogFetcher
	catalog CatalogStore
	logger  *log.Logger
}

// NewResolver creates a resolver over the given gateway and catalog store.
func NewResolver(fetcher CatalogFetcher, catalog CatalogStore, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{fetcher: fetcher, catalog: catalog, logger: logger}
}

// ResolveAndFetch determines which of the played tracks are already known,
// fetches only the unknown ones and, transitively, their unknown albums and
// artists, and returns normalized entities ready for storage.
//
// A fully-cached input short-circuits: no network calls, all-empty result.
// Individual items the upstream service cannot serve are dropped from the
// batch, never treated as a batch failure.
func (r *Resolver) ResolveAndFetch(ctx context.Context, userID string, trackIDs []string) (*ResolvedBatch, error) {
	stored, err := r.catalog.TracksByID(trackIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stored tracks: %w", err)
	}

	missingTrackIDs := missingIDs(trackIDs, trackKeys(stored))
	if len(missingTrackIDs) == 0 {
		r.logger.Debug("no missing tracks, passing", "user", userID)
		return &ResolvedBatch{}, nil
	}

	tracks, albumIDs, artistIDs, err := r.fetchTracks(ctx, userID, missingTrackIDs)
	if err != nil {
		return nil, err
	}

	albums, err := r.fetchMissingAlbums(ctx, userID, albumIDs)
	if err != nil {
		return nil, err
	}

	artists, err := r.fetchMissingArtists(ctx, userID, artistIDs)
	if err != nil {
		return nil, err
	}

	// A single batch may reference the same album or artist through several
	// tracks; dedupe before anything is persisted.
	return &ResolvedBatch{
		Tracks:  shared.Dedupe(tracks, func(t models.Track) string { return t.ID }),
		Albums:  shared.Dedupe(albums, func(a models.Album) string { return a.ID }),
		Artists: shared.Dedupe(artists, func(a models.Artist) string { return a.ID }),
	}, nil
}

// fetchTracks fetches each missing track individually through the gateway and
// returns the normalized tracks plus the referenced album and artist id sets,
// flattened and deduplicated across the newly fetched tracks only.
func (r *Resolver) fetchTracks(ctx context.Context, userID string, ids []string) ([]models.Track, []string, []string, error) {
	var tracks []models.Track
	var albumIDs, artistIDs []string

	for _, id := range ids {
		fetched, err := r.fetcher.Track(ctx, userID, id)
		if err != nil {
			return nil, nil, nil, err
		}
		if fetched == nil {
			continue
		}

		track := fetched.Normalize()
		r.logger.Info("storing non existing track", "name", track.Name, "id", track.ID)

		tracks = append(tracks, track)
		albumIDs = append(albumIDs, track.AlbumID)
		artistIDs = append(artistIDs, track.ArtistIDs...)
	}

	metrics.IngestedTracksTotal.WithLabelValues(userID).Add(float64(len(tracks)))

	dedupe := func(ids []string) []string {
		return shared.Dedupe(ids, func(id string) string { return id })
	}
	return tracks, dedupe(albumIDs), dedupe(artistIDs), nil
}

// fetchMissingAlbums fetches only the referenced albums the store lacks.
func (r *Resolver) fetchMissingAlbums(ctx context.Context, userID string, albumIDs []string) ([]models.Album, error) {
	stored, err := r.catalog.AlbumsByID(albumIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stored albums: %w", err)
	}

	storedKeys := make(map[string]struct{}, len(stored))
	for _, album := range stored {
		storedKeys[album.ID] = struct{}{}
	}

	var albums []models.Album
	for _, id := range missingIDs(albumIDs, storedKeys) {
		fetched, err := r.fetcher.Album(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			continue
		}

		album := fetched.Normalize()
		r.logger.Info("storing non existing album", "name", album.Name, "id", album.ID)
		albums = append(albums, album)
	}

	metrics.IngestedAlbumsTotal.WithLabelValues(userID).Add(float64(len(albums)))
	return albums, nil
}

// fetchMissingArtists fetches only the referenced artists the store lacks.
func (r *Resolver) fetchMissingArtists(ctx context.Context, userID string, artistIDs []string) ([]models.Artist, error) {
	stored, err := r.catalog.ArtistsByID(artistIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stored artists: %w", err)
	}

	storedKeys := make(map[string]struct{}, len(stored))
	for _, artist := range stored {
		storedKeys[artist.ID] = struct{}{}
	}

	var artists []models.Artist
	for _, id := range missingIDs(artistIDs, storedKeys) {
		fetched, err := r.fetcher.Artist(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			continue
		}

		artist := fetched.Normalize()
		r.logger.Info("storing non existing artist", "name", artist.Name, "id", artist.ID)
		artists = append(artists, artist)
	}

	metrics.IngestedArtistsTotal.WithLabelValues(userID).Add(float64(len(artists)))
	return artists, nil
}

func trackKeys(tracks []models.Track) map[string]struct{} {
	keys := make(map[string]struct{}, len(tracks))
	for _, track := range tracks {
		keys[track.ID] = struct{}{}
	}
	return keys
}

// missingIDs returns the ids absent from stored, preserving input order.
func missingIDs(ids []string, stored map[string]struct{}) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := stored[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
