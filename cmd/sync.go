package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/replay/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync ingests recently played tracks for every linked account.
//
// Runs a single iteration by default; --loop keeps polling on the configured
// interval until interrupted.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	interval := r.config.Sync.PollInterval()
	if secs := cmd.Int("interval"); secs > 0 {
		interval = time.Duration(secs) * time.Second
	}

	engine := tasks.NewSyncEngine(tasks.SyncEngineOpts{
		History:   s.gateway,
		Resolver:  s.resolver,
		Ingestor:  s.ingestor,
		Users:     s.users,
		Interval:  interval,
		RateLimit: r.config.Sync.RateLimit,
		Logger:    r.logger,
	})

	if cmd.Bool("loop") {
		r.logger.Info("starting sync loop", "interval", interval)
		return engine.Run(ctx)
	}

	engine.SyncAll(ctx)
	return nil
}

// History shows the ingested listening history for one account.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
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

	listens, err := s.listens.ListByUser(userID, int(limit))
	if err != nil {
		return fmt.Errorf("failed to load listens: %w", err)
	}

	total, err := s.listens.CountByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to count listens: %w", err)
	}

	if useJSON {
		return r.writeJSON(listens, pretty)
	}

	if len(listens) == 0 {
		return r.writePlain("No listens recorded yet. Run 'replay sync' first.\n")
	}

	// Track names come from the local catalog; a listen whose track was
	// dropped upstream during resolution falls back to the bare id.
	trackIDs := make([]string, len(listens))
	for i, l := range listens {
		trackIDs[i] = l.TrackID
	}
	tracks, err := s.catalog.TracksByID(trackIDs)
	if err != nil {
		return fmt.Errorf("failed to load tracks: %w", err)
	}
	names := make(map[string]string, len(tracks))
	for _, t := range tracks {
		names[t.ID] = t.Name
	}

	r.writePlain("Showing %d of %d listens:\n\n", len(listens), total)
	for i, l := range listens {
		name := names[l.TrackID]
		if name == "" {
			name = l.TrackID
		}
		r.writePlain("%d. %s\n", i+1, name)
		r.writePlain("   Played: %s\n", l.PlayedAt.Local().Format(time.RFC1123))
	}

	return nil
}
