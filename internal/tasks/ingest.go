package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/replay/internal/metrics"
	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/repositories"
	"github.com/desertthunder/replay/internal/shared"
)

// Ingestor applies one polling iteration's results to the store atomically
// with respect to other ingestion runs.
//
// A process-wide mutex totally orders ingestion transactions, so a slow
// iteration and a subsequent fast one for the same user can never interleave
// their watermark updates or duplicate-entity inserts. Inside the lock the
// writes run in a real SQLite transaction, so a failure mid-way leaves no
// partial write behind.
type Ingestor struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *log.Logger
}

// NewIngestor creates an ingestor over the given database handle.
func NewIngestor(db *sql.DB, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Ingestor{db: db, logger: logger}
}

// Apply persists the batch's deduplicated entities, appends the user's listen
// events, and advances the watermarks: last-synced becomes iterationTime
// unconditionally, first-listened moves back to the batch's earliest play
// when that is earlier than the stored value.
//
// The write lock is released on every exit path; a failure here never blocks
// a later ingestion run.
func (in *Ingestor) Apply(ctx context.Context, userID string, iterationTime time.Time, batch *ResolvedBatch, listens []models.Listen) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if batch == nil {
		batch = &ResolvedBatch{}
	}

	tx, err := in.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ingestion transaction: %w", err)
	}
	defer tx.Rollback()

	catalog := repositories.NewCatalogRepository(tx)
	if err := catalog.InsertTracks(batch.Tracks); err != nil {
		return err
	}
	if err := catalog.InsertAlbums(batch.Albums); err != nil {
		return err
	}
	if err := catalog.InsertArtists(batch.Artists); err != nil {
		return err
	}

	if err := repositories.NewListenRepository(tx).Append(listens); err != nil {
		return err
	}

	users := repositories.NewUserRepository(tx)
	if err := users.SetLastSyncedAt(userID, iterationTime); err != nil {
		return err
	}

	if earliest, ok := earliestPlay(listens); ok {
		if err := users.SetFirstListenedAtIfEarlier(userID, earliest); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingestion transaction: %w", err)
	}

	metrics.ListensIngestedTotal.WithLabelValues(userID).Add(float64(len(listens)))
	in.logger.Debug("applied ingestion batch",
		"user", userID,
		"tracks", len(batch.Tracks),
		"albums", len(batch.Albums),
		"artists", len(batch.Artists),
		"listens", len(listens))

	return nil
}

// earliestPlay returns the minimum played-at across the listens.
func earliestPlay(listens []models.Listen) (time.Time, bool) {
	if len(listens) == 0 {
		return time.Time{}, false
	}

	earliest := listens[0].PlayedAt
	for _, listen := range listens[1:] {
		if listen.PlayedAt.Before(earliest) {
			earliest = listen.PlayedAt
		}
	}
	return earliest, true
}
