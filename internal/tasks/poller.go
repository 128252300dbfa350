package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/replay/internal/metrics"
	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/services"
	"github.com/desertthunder/replay/internal/shared"
	"golang.org/x/time/rate"
)

// HistorySource is the slice of the gateway the sync loop polls.
type HistorySource interface {
	RecentlyPlayed(ctx context.Context, userID string, after time.Time) ([]services.SpotifyPlayedItem, error)
}

// BatchResolver computes the minimal missing-entity set for a played batch.
type BatchResolver interface {
	ResolveAndFetch(ctx context.Context, userID string, trackIDs []string) (*ResolvedBatch, error)
}

// BatchIngestor persists one iteration's results under the write lock.
type BatchIngestor interface {
	Apply(ctx context.Context, userID string, iterationTime time.Time, batch *ResolvedBatch, listens []models.Listen) error
}

// UserLister enumerates the accounts to poll.
type UserLister interface {
	List() ([]*models.User, error)
}

// SyncEngine drives the ingestion pipeline: each iteration polls a user's
// recently-played feed from their last-sync watermark, resolves the played
// tracks to missing catalog entities, and hands the results to the ingestor.
//
// Iteration failures are logged and abandoned; the next poll retries from the
// last successfully advanced watermark.
type SyncEngine struct {
	history  HistorySource
	resolver BatchResolver
	ingestor BatchIngestor
	users    UserLister
	limiter  *rate.Limiter
	interval time.Duration
	logger   *log.Logger

	now func() time.Time
}

// SyncEngineOpts contains configuration options for creating a [SyncEngine].
type SyncEngineOpts struct {
	History  HistorySource
	Resolver BatchResolver
	Ingestor BatchIngestor
	Users    UserLister
	Interval time.Duration
	// RateLimit caps sync iterations per second across all users.
	RateLimit float64
	Logger    *log.Logger
}

// NewSyncEngine creates a sync engine with the provided collaborators.
func NewSyncEngine(opts SyncEngineOpts) *SyncEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	return &SyncEngine{
		history:  opts.History,
		resolver: opts.Resolver,
		ingestor: opts.Ingestor,
		users:    opts.Users,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Run polls every linked user each interval until the context is cancelled.
func (e *SyncEngine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.SyncAll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncAll runs one iteration for every linked user. Per-user failures are
// logged and skipped so one broken credential never stalls the other users.
func (e *SyncEngine) SyncAll(ctx context.Context) {
	users, err := e.users.List()
	if err != nil {
		e.logger.Error("failed to list users for sync", "err", err)
		return
	}

	for _, user := range users {
		if !user.Linked() {
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return
		}

		if err := e.SyncUser(ctx, user); err != nil {
			metrics.SyncIterationsTotal.WithLabelValues("error").Inc()
			e.logger.Error("sync iteration abandoned", "user", user.ID, "err", err)
			continue
		}
		metrics.SyncIterationsTotal.WithLabelValues("ok").Inc()
	}
}

// SyncUser runs a single polling iteration for one user.
func (e *SyncEngine) SyncUser(ctx context.Context, user *models.User) error {
	iterationTime := e.now()

	items, err := e.history.RecentlyPlayed(ctx, user.ID, user.LastSyncedAt)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		e.logger.Debug("no new plays", "user", user.ID)
		return nil
	}

	trackIDs := make([]string, len(items))
	listens := make([]models.Listen, len(items))
	for i, item := range items {
		trackIDs[i] = item.Track.ID
		listens[i] = models.Listen{
			UserID:   user.ID,
			TrackID:  item.Track.ID,
			PlayedAt: item.PlayedAt,
		}
	}

	batch, err := e.resolver.ResolveAndFetch(ctx, user.ID, trackIDs)
	if err != nil {
		return err
	}

	return e.ingestor.Apply(ctx, user.ID, iterationTime, batch, listens)
}
