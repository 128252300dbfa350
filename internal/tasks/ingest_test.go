package tasks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/repositories"
	"github.com/desertthunder/replay/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A pooled second connection would get its own empty in-memory database.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	users := repositories.NewUserRepository(db)
	user := &models.User{ID: id, SpotifyID: "spotify-" + id, DisplayName: "User"}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func validTrack(id string) models.Track {
	return models.Track{ID: id, Name: "Track " + id, AlbumID: "al1", ArtistIDs: []string{"ar1"}}
}

func TestIngestor(t *testing.T) {
	ctx := context.Background()

	t.Run("persists entities, listens and watermarks", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		iteration := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		played := iteration.Add(-time.Hour)

		batch := &ResolvedBatch{
			Tracks:  []models.Track{validTrack("t1")},
			Albums:  []models.Album{{ID: "al1", Name: "Album", ArtistIDs: []string{"ar1"}}},
			Artists: []models.Artist{{ID: "ar1", Name: "Artist"}},
		}
		listens := []models.Listen{{UserID: "u1", TrackID: "t1", PlayedAt: played}}

		if err := ingestor.Apply(ctx, "u1", iteration, batch, listens); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		catalog := repositories.NewCatalogRepository(db)
		tracks, err := catalog.TracksByID([]string{"t1"})
		if err != nil || len(tracks) != 1 {
			t.Errorf("expected t1 persisted, got %v (err %v)", tracks, err)
		}

		count, err := repositories.NewListenRepository(db).CountByUser("u1")
		if err != nil || count != 1 {
			t.Errorf("expected 1 listen, got %d (err %v)", count, err)
		}

		user, err := repositories.NewUserRepository(db).User("u1")
		if err != nil {
			t.Fatalf("failed to load user: %v", err)
		}
		if !user.LastSyncedAt.Equal(iteration) {
			t.Errorf("expected last synced %v, got %v", iteration, user.LastSyncedAt)
		}
		if user.FirstListenedAt == nil || !user.FirstListenedAt.Equal(played) {
			t.Errorf("expected first listened %v, got %v", played, user.FirstListenedAt)
		}
	})

	t.Run("watermarks move in opposite directions", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		// First iteration at t+1000s with a play at t+500s.
		first := []models.Listen{{UserID: "u1", TrackID: "t1", PlayedAt: base.Add(500 * time.Second)}}
		if err := ingestor.Apply(ctx, "u1", base.Add(1000*time.Second), &ResolvedBatch{}, first); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Second iteration at t+2000s with an older play at t+100s.
		second := []models.Listen{{UserID: "u1", TrackID: "t2", PlayedAt: base.Add(100 * time.Second)}}
		if err := ingestor.Apply(ctx, "u1", base.Add(2000*time.Second), &ResolvedBatch{}, second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		user, err := repositories.NewUserRepository(db).User("u1")
		if err != nil {
			t.Fatalf("failed to load user: %v", err)
		}
		if !user.LastSyncedAt.Equal(base.Add(2000 * time.Second)) {
			t.Errorf("expected last synced to advance to t+2000s, got %v", user.LastSyncedAt)
		}
		if user.FirstListenedAt == nil || !user.FirstListenedAt.Equal(base.Add(100*time.Second)) {
			t.Errorf("expected first listened to move back to t+100s, got %v", user.FirstListenedAt)
		}

		// A later play must not move the first-listened watermark forward.
		third := []models.Listen{{UserID: "u1", TrackID: "t3", PlayedAt: base.Add(3000 * time.Second)}}
		if err := ingestor.Apply(ctx, "u1", base.Add(4000*time.Second), &ResolvedBatch{}, third); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		user, _ = repositories.NewUserRepository(db).User("u1")
		if user.FirstListenedAt == nil || !user.FirstListenedAt.Equal(base.Add(100*time.Second)) {
			t.Errorf("expected first listened unchanged at t+100s, got %v", user.FirstListenedAt)
		}
	})

	t.Run("tolerates duplicate entities and listens", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		played := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		batch := &ResolvedBatch{Tracks: []models.Track{validTrack("t1")}}
		listens := []models.Listen{{UserID: "u1", TrackID: "t1", PlayedAt: played}}

		if err := ingestor.Apply(ctx, "u1", played.Add(time.Minute), batch, listens); err != nil {
			t.Fatalf("unexpected error on first apply: %v", err)
		}
		// Overlapping polls replay the same batch.
		if err := ingestor.Apply(ctx, "u1", played.Add(2*time.Minute), batch, listens); err != nil {
			t.Fatalf("unexpected error on duplicate apply: %v", err)
		}

		count, err := repositories.NewListenRepository(db).CountByUser("u1")
		if err != nil || count != 1 {
			t.Errorf("expected duplicate listen ignored, got count %d (err %v)", count, err)
		}
	})

	t.Run("distinct plays of the same track are separate listens", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		listens := []models.Listen{
			{UserID: "u1", TrackID: "t1", PlayedAt: base},
			{UserID: "u1", TrackID: "t1", PlayedAt: base.Add(4 * time.Minute)},
		}

		if err := ingestor.Apply(ctx, "u1", base.Add(time.Hour), &ResolvedBatch{}, listens); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		count, err := repositories.NewListenRepository(db).CountByUser("u1")
		if err != nil || count != 2 {
			t.Errorf("expected 2 listens, got %d (err %v)", count, err)
		}
	})

	t.Run("a failed run rolls back and releases the lock", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		played := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		// A track without references fails validation mid-transaction.
		bad := &ResolvedBatch{Tracks: []models.Track{{ID: "broken"}}}
		listens := []models.Listen{{UserID: "u1", TrackID: "broken", PlayedAt: played}}
		if err := ingestor.Apply(ctx, "u1", played.Add(time.Minute), bad, listens); err == nil {
			t.Fatal("expected validation error")
		}

		// Nothing from the failed run is visible.
		count, err := repositories.NewListenRepository(db).CountByUser("u1")
		if err != nil || count != 0 {
			t.Errorf("expected rollback to discard listens, got count %d (err %v)", count, err)
		}
		user, _ := repositories.NewUserRepository(db).User("u1")
		if !user.LastSyncedAt.IsZero() {
			t.Errorf("expected watermark untouched, got %v", user.LastSyncedAt)
		}

		// The next run proceeds normally.
		good := &ResolvedBatch{Tracks: []models.Track{validTrack("t1")}}
		ok := []models.Listen{{UserID: "u1", TrackID: "t1", PlayedAt: played}}
		if err := ingestor.Apply(ctx, "u1", played.Add(2*time.Minute), good, ok); err != nil {
			t.Fatalf("expected lock released after failure, got %v", err)
		}
	})

	t.Run("an empty batch still appends listens and advances the watermark", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "u1")
		ingestor := NewIngestor(db, nil)

		played := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		iteration := played.Add(time.Minute)
		listens := []models.Listen{{UserID: "u1", TrackID: "t1", PlayedAt: played}}

		if err := ingestor.Apply(ctx, "u1", iteration, nil, listens); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		user, err := repositories.NewUserRepository(db).User("u1")
		if err != nil {
			t.Fatalf("failed to load user: %v", err)
		}
		if !user.LastSyncedAt.Equal(iteration) {
			t.Errorf("expected watermark advanced, got %v", user.LastSyncedAt)
		}
	})
}
