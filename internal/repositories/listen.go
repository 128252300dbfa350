package repositories

import (
	"fmt"

	"github.com/desertthunder/replay/internal/models"
)

// ListenRepository persists immutable listen events.
type ListenRepository struct {
	db DBTX
}

// NewListenRepository creates a new ListenRepository bound to db, which may
// be a [sql.DB] or an open [sql.Tx].
func NewListenRepository(db DBTX) *ListenRepository {
	return &ListenRepository{db: db}
}

// Append stores the given listen events. The composite primary key makes the
// insert idempotent: a listen re-delivered by an overlapping poll is ignored
// rather than duplicated.
func (r *ListenRepository) Append(listens []models.Listen) error {
	query := `
		INSERT OR IGNORE INTO listens (user_id, track_id, played_at)
		VALUES (?, ?, ?)
	`

	for _, listen := range listens {
		if listen.UserID == "" || listen.TrackID == "" {
			return fmt.Errorf("listen event missing user or track reference")
		}
		if _, err := r.db.Exec(query, listen.UserID, listen.TrackID, listen.PlayedAt); err != nil {
			return fmt.Errorf("failed to insert listen: %w", err)
		}
	}

	return nil
}

// ListByUser retrieves a user's listens ordered from most to least recent.
func (r *ListenRepository) ListByUser(userID string, limit int) ([]models.Listen, error) {
	query := `
		SELECT user_id, track_id, played_at
		FROM listens
		WHERE user_id = ?
		ORDER BY played_at DESC
	`
	args := []any{userID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listens: %w", err)
	}
	defer rows.Close()

	var listens []models.Listen
	for rows.Next() {
		var listen models.Listen
		if err := rows.Scan(&listen.UserID, &listen.TrackID, &listen.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listen: %w", err)
		}
		listens = append(listens, listen)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return listens, nil
}

// CountByUser returns the number of listens recorded for a user.
func (r *ListenRepository) CountByUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM listens WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count listens: %w", err)
	}
	return count, nil
}
