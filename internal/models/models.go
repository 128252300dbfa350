// package models defines the data model for the listening history service
package models

import (
	"fmt"
	"time"
)

// Image represents an image resource attached to an album or artist.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Track is a catalog track in its normalized store shape: the album and
// artists are held as id references, never embedded objects.
//
// Tracks are created once, on first encounter across any user, and are
// immutable afterwards.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	AlbumID    string   `json:"album_id"`
	ArtistIDs  []string `json:"artist_ids"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

// Validate checks the referential shape of the track.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.AlbumID == "" {
		return fmt.Errorf("track %s has no album reference", t.ID)
	}
	if len(t.ArtistIDs) == 0 {
		return fmt.Errorf("track %s has no artist references", t.ID)
	}
	return nil
}

// Album is a catalog album with artist id references.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ArtistIDs   []string `json:"artist_ids"`
	AlbumType   string   `json:"album_type"`
	ReleaseDate string   `json:"release_date"`
	Genres      []string `json:"genres"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// Artist is a catalog artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Images []Image  `json:"images"`
	URI    string   `json:"uri"`
}

// Listen records a single play of a track by a user. Immutable once created;
// replays of the same track produce distinct rows with distinct timestamps.
type Listen struct {
	UserID   string    `json:"user_id"`
	TrackID  string    `json:"track_id"`
	PlayedAt time.Time `json:"played_at"`
}

// User holds account credentials and the per-user sync watermarks.
//
// LastSyncedAt only moves forward; FirstListenedAt only moves backward and
// stays nil until the first ingested listen.
type User struct {
	ID              string     `json:"id"`
	SpotifyID       string     `json:"spotify_id"`
	DisplayName     string     `json:"display_name"`
	AccessToken     string     `json:"-"`
	RefreshToken    string     `json:"-"`
	TokenExpiresAt  time.Time  `json:"token_expires_at"`
	LastSyncedAt    time.Time  `json:"last_synced_at"`
	FirstListenedAt *time.Time `json:"first_listened_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Linked reports whether the user has a Spotify account attached.
func (u *User) Linked() bool {
	return u.SpotifyID != ""
}
