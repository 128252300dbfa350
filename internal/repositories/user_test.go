package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/replay/internal/models"
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

func TestUserRepository(t *testing.T) {
	t.Run("Create and User roundtrip", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		user := &models.User{
			SpotifyID:      "spotify-1",
			DisplayName:    "Listener",
			AccessToken:    "access",
			RefreshToken:   "refresh",
			TokenExpiresAt: time.Now().Add(time.Hour).UTC(),
		}
		if err := repo.Create(user); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Fatal("expected generated id")
		}

		loaded, err := repo.User(user.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loaded.SpotifyID != "spotify-1" || loaded.DisplayName != "Listener" {
			t.Errorf("unexpected user: %+v", loaded)
		}
		if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
			t.Errorf("expected credentials persisted, got %+v", loaded)
		}
		if loaded.FirstListenedAt != nil {
			t.Errorf("expected nil first-listened watermark, got %v", loaded.FirstListenedAt)
		}
	})

	t.Run("User returns ErrUserNotFound for unknown id", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		_, err := repo.User("missing")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("UserBySpotifyID finds linked accounts", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		user := &models.User{SpotifyID: "spotify-1"}
		if err := repo.Create(user); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, err := repo.UserBySpotifyID("spotify-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loaded.ID != user.ID {
			t.Errorf("expected %s, got %s", user.ID, loaded.ID)
		}

		if _, err := repo.UserBySpotifyID("spotify-2"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("SaveTokens updates the stored triple", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		user := &models.User{SpotifyID: "spotify-1", AccessToken: "old"}
		if err := repo.Create(user); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		if err := repo.SaveTokens(user.ID, "new-access", "new-refresh", expiry); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, _ := repo.User(user.ID)
		if loaded.AccessToken != "new-access" || loaded.RefreshToken != "new-refresh" {
			t.Errorf("expected refreshed tokens, got %+v", loaded)
		}
		if !loaded.TokenExpiresAt.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, loaded.TokenExpiresAt)
		}

		if err := repo.SaveTokens("missing", "a", "r", expiry); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("LinkAccount attaches the external account", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		user := &models.User{}
		if err := repo.Create(user); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := repo.LinkAccount(user.ID, "spotify-9", "Listener"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, _ := repo.User(user.ID)
		if !loaded.Linked() || loaded.SpotifyID != "spotify-9" {
			t.Errorf("expected linked account, got %+v", loaded)
		}
	})

	t.Run("watermarks", func(t *testing.T) {
		t.Run("SetLastSyncedAt overwrites unconditionally", func(t *testing.T) {
			repo := NewUserRepository(newTestDB(t))
			user := &models.User{SpotifyID: "s1"}
			if err := repo.Create(user); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			later := first.Add(time.Hour)

			for _, ts := range []time.Time{first, later} {
				if err := repo.SetLastSyncedAt(user.ID, ts); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			loaded, _ := repo.User(user.ID)
			if !loaded.LastSyncedAt.Equal(later) {
				t.Errorf("expected %v, got %v", later, loaded.LastSyncedAt)
			}
		})

		t.Run("SetFirstListenedAtIfEarlier only moves backward", func(t *testing.T) {
			repo := NewUserRepository(newTestDB(t))
			user := &models.User{SpotifyID: "s1"}
			if err := repo.Create(user); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			// Unset watermark takes any value.
			if err := repo.SetFirstListenedAtIfEarlier(user.ID, base); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			loaded, _ := repo.User(user.ID)
			if loaded.FirstListenedAt == nil || !loaded.FirstListenedAt.Equal(base) {
				t.Fatalf("expected %v, got %v", base, loaded.FirstListenedAt)
			}

			// An earlier play moves it back.
			earlier := base.Add(-time.Hour)
			if err := repo.SetFirstListenedAtIfEarlier(user.ID, earlier); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			loaded, _ = repo.User(user.ID)
			if !loaded.FirstListenedAt.Equal(earlier) {
				t.Errorf("expected %v, got %v", earlier, loaded.FirstListenedAt)
			}

			// A later play leaves it alone, without error.
			if err := repo.SetFirstListenedAtIfEarlier(user.ID, base.Add(time.Hour)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			loaded, _ = repo.User(user.ID)
			if !loaded.FirstListenedAt.Equal(earlier) {
				t.Errorf("expected watermark unchanged at %v, got %v", earlier, loaded.FirstListenedAt)
			}
		})
	})

	t.Run("List orders by creation time", func(t *testing.T) {
		repo := NewUserRepository(newTestDB(t))

		first := &models.User{SpotifyID: "s1"}
		second := &models.User{SpotifyID: "s2"}
		for _, u := range []*models.User{first, second} {
			if err := repo.Create(u); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			time.Sleep(5 * time.Millisecond)
		}

		users, err := repo.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if users[0].ID != first.ID || users[1].ID != second.ID {
			t.Errorf("unexpected order: %s, %s", users[0].ID, users[1].ID)
		}
	})
}
