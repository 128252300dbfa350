package repositories

import (
	"testing"
	"time"

	"github.com/desertthunder/replay/internal/models"
)

func TestCatalogRepository(t *testing.T) {
	t.Run("tracks", func(t *testing.T) {
		t.Run("insert and lookup roundtrip", func(t *testing.T) {
			repo := NewCatalogRepository(newTestDB(t))

			track := models.Track{
				ID:         "t1",
				Name:       "Song",
				AlbumID:    "al1",
				ArtistIDs:  []string{"ar1", "ar2"},
				DurationMS: 201000,
				Explicit:   true,
				Popularity: 64,
				URI:        "spotify:track:t1",
			}
			if err := repo.InsertTracks([]models.Track{track}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tracks, err := repo.TracksByID([]string{"t1", "t2"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tracks) != 1 {
				t.Fatalf("expected 1 track, got %d", len(tracks))
			}
			got := tracks[0]
			if got.Name != "Song" || got.AlbumID != "al1" || !got.Explicit {
				t.Errorf("unexpected track: %+v", got)
			}
			if len(got.ArtistIDs) != 2 || got.ArtistIDs[0] != "ar1" {
				t.Errorf("unexpected artist references: %v", got.ArtistIDs)
			}
		})

		t.Run("duplicate inserts keep the first writer's row", func(t *testing.T) {
			repo := NewCatalogRepository(newTestDB(t))

			first := models.Track{ID: "t1", Name: "Original", AlbumID: "al1", ArtistIDs: []string{"ar1"}}
			second := models.Track{ID: "t1", Name: "Replacement", AlbumID: "al1", ArtistIDs: []string{"ar1"}}

			if err := repo.InsertTracks([]models.Track{first}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := repo.InsertTracks([]models.Track{second}); err != nil {
				t.Fatalf("expected duplicate tolerated, got %v", err)
			}

			tracks, _ := repo.TracksByID([]string{"t1"})
			if len(tracks) != 1 || tracks[0].Name != "Original" {
				t.Errorf("expected first writer to win, got %+v", tracks)
			}
		})

		t.Run("rejects tracks without references", func(t *testing.T) {
			repo := NewCatalogRepository(newTestDB(t))

			if err := repo.InsertTracks([]models.Track{{ID: "t1", Name: "Bare"}}); err == nil {
				t.Error("expected validation error for track without references")
			}
		})

		t.Run("empty id list short-circuits", func(t *testing.T) {
			repo := NewCatalogRepository(newTestDB(t))

			tracks, err := repo.TracksByID(nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tracks != nil {
				t.Errorf("expected nil result, got %v", tracks)
			}
		})
	})

	t.Run("albums roundtrip with JSON fields", func(t *testing.T) {
		repo := NewCatalogRepository(newTestDB(t))

		album := models.Album{
			ID:          "al1",
			Name:        "Album",
			ArtistIDs:   []string{"ar1"},
			AlbumType:   "album",
			ReleaseDate: "2024-01-01",
			Genres:      []string{"ambient", "electronic"},
			Images:      []models.Image{{URL: "http://img", Height: 300, Width: 300}},
			URI:         "spotify:album:al1",
		}
		if err := repo.InsertAlbums([]models.Album{album}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		albums, err := repo.AlbumsByID([]string{"al1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(albums) != 1 {
			t.Fatalf("expected 1 album, got %d", len(albums))
		}
		got := albums[0]
		if len(got.Genres) != 2 || got.Genres[0] != "ambient" {
			t.Errorf("unexpected genres: %v", got.Genres)
		}
		if len(got.Images) != 1 || got.Images[0].URL != "http://img" {
			t.Errorf("unexpected images: %v", got.Images)
		}
		if len(got.ArtistIDs) != 1 || got.ArtistIDs[0] != "ar1" {
			t.Errorf("unexpected artist references: %v", got.ArtistIDs)
		}
	})

	t.Run("artists roundtrip", func(t *testing.T) {
		repo := NewCatalogRepository(newTestDB(t))

		artist := models.Artist{ID: "ar1", Name: "Artist", Genres: []string{"jazz"}}
		if err := repo.InsertArtists([]models.Artist{artist}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		artists, err := repo.ArtistsByID([]string{"ar1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(artists) != 1 || artists[0].Name != "Artist" {
			t.Errorf("unexpected artists: %+v", artists)
		}
	})
}

func TestListenRepository(t *testing.T) {
	t.Run("Append is idempotent per user, track and timestamp", func(t *testing.T) {
		repo := NewListenRepository(newTestDB(t))

		played := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		listen := models.Listen{UserID: "u1", TrackID: "t1", PlayedAt: played}

		if err := repo.Append([]models.Listen{listen, listen}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		count, err := repo.CountByUser("u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 listen, got %d", count)
		}
	})

	t.Run("Append rejects listens without references", func(t *testing.T) {
		repo := NewListenRepository(newTestDB(t))

		if err := repo.Append([]models.Listen{{UserID: "u1"}}); err == nil {
			t.Error("expected error for listen without track reference")
		}
	})

	t.Run("ListByUser orders newest first and honors the limit", func(t *testing.T) {
		repo := NewListenRepository(newTestDB(t))

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		var listens []models.Listen
		for i := 0; i < 5; i++ {
			listens = append(listens, models.Listen{
				UserID:   "u1",
				TrackID:  "t1",
				PlayedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}
		if err := repo.Append(listens); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := repo.ListByUser("u1", 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 listens, got %d", len(got))
		}
		if !got[0].PlayedAt.After(got[1].PlayedAt) || !got[1].PlayedAt.After(got[2].PlayedAt) {
			t.Errorf("expected newest first, got %+v", got)
		}
	})

	t.Run("listens are scoped per user", func(t *testing.T) {
		repo := NewListenRepository(newTestDB(t))

		played := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		if err := repo.Append([]models.Listen{
			{UserID: "u1", TrackID: "t1", PlayedAt: played},
			{UserID: "u2", TrackID: "t1", PlayedAt: played},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		count, _ := repo.CountByUser("u1")
		if count != 1 {
			t.Errorf("expected 1 listen for u1, got %d", count)
		}
	})
}
