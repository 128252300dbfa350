package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/shared"
)

// UserRepository persists user accounts, credentials, and sync watermarks.
// It implements the gateway's UserStore.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository bound to db, which may be a
// [sql.DB] or an open [sql.Tx].
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, spotify_id, display_name, access_token, refresh_token,
	token_expires_at, last_synced_at, first_listened_at, created_at, updated_at
`

// Create inserts a new user with a generated id and returns it.
func (r *UserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, spotify_id, display_name, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, user.ID, user.SpotifyID, user.DisplayName,
		user.AccessToken, user.RefreshToken, nullableTime(user.TokenExpiresAt), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// User retrieves a user by internal id, returning [shared.ErrUserNotFound]
// when absent.
func (r *UserRepository) User(id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// UserBySpotifyID retrieves a user by linked Spotify account id.
func (r *UserRepository) UserBySpotifyID(spotifyID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE spotify_id = ?"
	return r.scanOne(r.db.QueryRow(query, spotifyID), spotifyID)
}

// List retrieves all users ordered by creation time.
func (r *UserRepository) List() ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// SaveTokens persists a refreshed token triple for the user.
func (r *UserRepository) SaveTokens(id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	return r.execForUser(query, accessToken, refreshToken, nullableTime(expiresAt), time.Now().UTC(), id)
}

// LinkAccount attaches a Spotify account to the user.
func (r *UserRepository) LinkAccount(id, spotifyID, displayName string) error {
	query := `
		UPDATE users
		SET spotify_id = ?, display_name = ?, updated_at = ?
		WHERE id = ?
	`

	return r.execForUser(query, spotifyID, displayName, time.Now().UTC(), id)
}

// SetLastSyncedAt overwrites the user's last-sync watermark. The overwrite is
// unconditional: iterations are driven by strictly increasing polling
// cursors, so the watermark always moves forward.
func (r *UserRepository) SetLastSyncedAt(id string, ts time.Time) error {
	query := `
		UPDATE users
		SET last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`

	return r.execForUser(query, ts, time.Now().UTC(), id)
}

// SetFirstListenedAtIfEarlier moves the user's first-listen watermark back to
// ts when it is unset or later than ts. It never moves forward.
func (r *UserRepository) SetFirstListenedAtIfEarlier(id string, ts time.Time) error {
	query := `
		UPDATE users
		SET first_listened_at = ?, updated_at = ?
		WHERE id = ? AND (first_listened_at IS NULL OR first_listened_at > ?)
	`

	_, err := r.db.Exec(query, ts, time.Now().UTC(), id, ts)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// execForUser runs an update that must match exactly one user row.
func (r *UserRepository) execForUser(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %v", shared.ErrUserNotFound, args[len(args)-1])
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row *sql.Row, id string) (*models.User, error) {
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) scanRow(rows *sql.Rows) (*models.User, error) {
	user, err := scanUser(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func scanUser(s rowScanner) (*models.User, error) {
	var user models.User
	var tokenExpiresAt, lastSyncedAt, firstListenedAt sql.NullTime

	err := s.Scan(&user.ID, &user.SpotifyID, &user.DisplayName,
		&user.AccessToken, &user.RefreshToken,
		&tokenExpiresAt, &lastSyncedAt, &firstListenedAt,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tokenExpiresAt.Valid {
		user.TokenExpiresAt = tokenExpiresAt.Time
	}
	if lastSyncedAt.Valid {
		user.LastSyncedAt = lastSyncedAt.Time
	}
	if firstListenedAt.Valid {
		user.FirstListenedAt = &firstListenedAt.Time
	}

	return &user, nil
}

// nullableTime converts a zero time to NULL for storage.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
