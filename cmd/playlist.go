package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/replay/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists the account's playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	userID, err := r.resolveUser(s, cmd)
	if err != nil {
		return err
	}

	playlists, err := s.gateway.Playlists(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistCreate creates a playlist and optionally fills it with tracks.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := stringArg(cmd, "name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	trackIDs := cmd.StringSlice("track")

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	userID, err := r.resolveUser(s, cmd)
	if err != nil {
		return err
	}

	created, err := s.gateway.CreatePlaylist(ctx, userID, name, trackIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("✓ Created playlist %s\n", created.Name)
	r.writePlain("  ID: %s\n", created.ID)
	if len(trackIDs) > 0 {
		r.writePlain("  Tracks added: %d\n", len(trackIDs))
	}

	return nil
}

// PlaylistAdd appends tracks to an existing playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	trackIDs := cmd.StringSlice("track")

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	userID, err := r.resolveUser(s, cmd)
	if err != nil {
		return err
	}

	if err := s.gateway.AddToPlaylist(ctx, userID, playlistID, trackIDs); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("✓ Added %d tracks to playlist %s\n", len(trackIDs), playlistID)
	return nil
}

// Play starts playback of a track on the account's active device.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := stringArg(cmd, "id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	userID, err := r.resolveUser(s, cmd)
	if err != nil {
		return err
	}

	if err := s.gateway.PlayTrack(ctx, userID, "spotify:track:"+id); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("✓ Playing track %s\n", id)
	return nil
}

// Search looks up a track by name and artist.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	track := cmd.String("track")
	artist := cmd.String("artist")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	userID, err := r.resolveUser(s, cmd)
	if err != nil {
		return err
	}

	found, err := s.gateway.Search(ctx, userID, track, artist)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if found == nil {
		return r.writePlain("No match for %q by %q\n", track, artist)
	}

	if useJSON {
		return r.writeJSON(found, pretty)
	}

	r.writePlain("Found: %s\n", found.Name)
	if len(found.Artists) > 0 {
		r.writePlain("  Artist: %s\n", found.Artists[0].Name)
	}
	if found.Album.Name != "" {
		r.writePlain("  Album: %s\n", found.Album.Name)
	}
	r.writePlain("  ID: %s\n", found.ID)
	r.writePlain("  URI: %s\n", found.URI)

	return nil
}
