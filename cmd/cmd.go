// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Account id to act on (optional with a single stored account)",
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config file and database, run migrations",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Setup,
	}
}

// authCommand handles the Spotify account linking flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Link a Spotify account using OAuth2",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Auth,
	}
}

// syncCommand drives the listening history ingestion loop.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Ingest recently played tracks for stored accounts",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "loop",
				Usage: "Keep polling on an interval instead of running once",
			},
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Poll interval in seconds (with --loop)",
			},
		},
		Action: r.Sync,
	}
}

// historyCommand inspects ingested listens.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show ingested listening history",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of listens to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.History,
	}
}

// playlistCommand handles Spotify playlist operations.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the account's playlists",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist and optionally fill it with tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name", Max: 1},
				},
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringSliceFlag{
						Name:  "track",
						Usage: "Track id to add (repeatable)",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "add",
				Usage: "Add tracks to an existing playlist",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist id to add tracks to",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "track",
						Usage:    "Track id to add (repeatable)",
						Required: true,
					},
				},
				Action: r.PlaylistAdd,
			},
		},
	}
}

// playCommand starts playback of a single track.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Start playback of a track on the account's active device",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Max: 1},
		},
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
		},
		Action: r.Play,
	}
}

// searchCommand looks up a track by name and artist.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Spotify for a track",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.StringFlag{
				Name:     "track",
				Usage:    "Track name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Artist name",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

// serveCommand exposes the metrics and health HTTP endpoints.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the sync loop with the metrics/health HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Poll interval in seconds",
			},
		},
		Action: r.Serve,
	}
}
