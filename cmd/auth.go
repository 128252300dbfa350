package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/replay/internal/models"
	"github.com/desertthunder/replay/internal/server"
	"github.com/desertthunder/replay/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth performs the OAuth2 account linking flow.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, and stores the linked account.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	token, err := r.doOAuth(s)
	if err != nil {
		return err
	}

	profile, err := s.provider.Profile(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	// Re-linking an account that already exists updates its tokens instead of
	// creating a second record.
	if existing, err := s.users.UserBySpotifyID(profile.ID); err == nil {
		if err := s.users.SaveTokens(existing.ID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
			return err
		}
		r.writePlainln("✓ Re-linked %s (account %s)", profile.DisplayName, existing.ID)
		return nil
	} else if !errors.Is(err, shared.ErrUserNotFound) {
		return err
	}

	user := &models.User{
		SpotifyID:      profile.ID,
		DisplayName:    profile.DisplayName,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}
	if err := s.users.Create(user); err != nil {
		return err
	}

	r.writePlainln("✓ Linked %s (account %s)", profile.DisplayName, user.ID)
	r.writePlain("You can now use: replay sync\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(s *session) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := s.provider.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(s.provider.Config(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
