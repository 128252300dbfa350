package repositories

import (
	"fmt"

	"github.com/desertthunder/replay/internal/models"
)

// CatalogRepository persists the immutable track/album/artist reference data.
type CatalogRepository struct {
	db DBTX
}

// NewCatalogRepository creates a new CatalogRepository bound to db, which may
// be a [sql.DB] or an open [sql.Tx].
func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// TracksByID retrieves the stored tracks matching the given ids. Ids with no
// stored track are simply absent from the result.
func (r *CatalogRepository) TracksByID(ids []string) ([]models.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, name, album_id, artist_ids, duration_ms, explicit, popularity, uri
		FROM tracks
		WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.Query(query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		var artistIDs string

		if err := rows.Scan(&track.ID, &track.Name, &track.AlbumID, &artistIDs,
			&track.DurationMS, &track.Explicit, &track.Popularity, &track.URI); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		if err := decodeJSON(artistIDs, &track.ArtistIDs); err != nil {
			return nil, err
		}

		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// AlbumsByID retrieves the stored albums matching the given ids.
func (r *CatalogRepository) AlbumsByID(ids []string) ([]models.Album, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, name, artist_ids, album_type, release_date, genres, images, uri
		FROM albums
		WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.Query(query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var album models.Album
		var artistIDs, genres, images string

		if err := rows.Scan(&album.ID, &album.Name, &artistIDs, &album.AlbumType,
			&album.ReleaseDate, &genres, &images, &album.URI); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		if err := decodeJSON(artistIDs, &album.ArtistIDs); err != nil {
			return nil, err
		}
		if err := decodeJSON(genres, &album.Genres); err != nil {
			return nil, err
		}
		if err := decodeJSON(images, &album.Images); err != nil {
			return nil, err
		}

		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// ArtistsByID retrieves the stored artists matching the given ids.
func (r *CatalogRepository) ArtistsByID(ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, name, genres, images, uri
		FROM artists
		WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.Query(query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var artist models.Artist
		var genres, images string

		if err := rows.Scan(&artist.ID, &artist.Name, &genres, &images, &artist.URI); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		if err := decodeJSON(genres, &artist.Genres); err != nil {
			return nil, err
		}
		if err := decodeJSON(images, &artist.Images); err != nil {
			return nil, err
		}

		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// InsertTracks stores new tracks. Ids that already exist are ignored:
// concurrent resolvers may race to insert the same entity and the first
// writer wins.
func (r *CatalogRepository) InsertTracks(tracks []models.Track) error {
	query := `
		INSERT OR IGNORE INTO tracks (id, name, album_id, artist_ids, duration_ms, explicit, popularity, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		artistIDs, err := encodeJSON(track.ArtistIDs)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(query, track.ID, track.Name, track.AlbumID, artistIDs,
			track.DurationMS, track.Explicit, track.Popularity, track.URI); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", track.ID, err)
		}
	}

	return nil
}

// InsertAlbums stores new albums with the same duplicate-tolerant semantics
// as [CatalogRepository.InsertTracks].
func (r *CatalogRepository) InsertAlbums(albums []models.Album) error {
	query := `
		INSERT OR IGNORE INTO albums (id, name, artist_ids, album_type, release_date, genres, images, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, album := range albums {
		artistIDs, err := encodeJSON(album.ArtistIDs)
		if err != nil {
			return err
		}
		genres, err := encodeJSON(album.Genres)
		if err != nil {
			return err
		}
		images, err := encodeJSON(album.Images)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(query, album.ID, album.Name, artistIDs, album.AlbumType,
			album.ReleaseDate, genres, images, album.URI); err != nil {
			return fmt.Errorf("failed to insert album %s: %w", album.ID, err)
		}
	}

	return nil
}

// InsertArtists stores new artists with the same duplicate-tolerant semantics
// as [CatalogRepository.InsertTracks].
func (r *CatalogRepository) InsertArtists(artists []models.Artist) error {
	query := `
		INSERT OR IGNORE INTO artists (id, name, genres, images, uri)
		VALUES (?, ?, ?, ?, ?)
	`

	for _, artist := range artists {
		genres, err := encodeJSON(artist.Genres)
		if err != nil {
			return err
		}
		images, err := encodeJSON(artist.Images)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(query, artist.ID, artist.Name, genres, images, artist.URI); err != nil {
			return fmt.Errorf("failed to insert artist %s: %w", artist.ID, err)
		}
	}

	return nil
}
