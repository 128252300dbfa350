// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/replay/internal/models"
	"golang.org/x/oauth2"
)

// MockUserStore is an in-memory test double for the gateway's user store.
//
// Records every SaveTokens call so tests can assert on persistence ordering.
type MockUserStore struct {
	mu    sync.Mutex
	Users map[string]*models.User
	Saved []SavedTokens
	Err   error
}

// SavedTokens captures one SaveTokens invocation.
type SavedTokens struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func NewMockUserStore(users ...*models.User) *MockUserStore {
	m := &MockUserStore{Users: map[string]*models.User{}}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockUserStore) User(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *u
	return &copied, nil
}

func (m *MockUserStore) SaveTokens(id, accessToken, refreshToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, SavedTokens{UserID: id, AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt})
	if u, ok := m.Users[id]; ok {
		u.AccessToken = accessToken
		if refreshToken != "" {
			u.RefreshToken = refreshToken
		}
		u.TokenExpiresAt = expiresAt
	}
	return nil
}

// SaveCount returns how many token triples have been persisted.
func (m *MockUserStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saved)
}

// MockTokenProvider is a test double for the gateway's token provider.
type MockTokenProvider struct {
	mu         sync.Mutex
	Token      *oauth2.Token
	RefreshErr error
	Refreshes  int
}

func (m *MockTokenProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes++
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	if m.Token != nil {
		return m.Token, nil
	}
	return &oauth2.Token{
		AccessToken:  "refreshed-access",
		RefreshToken: "refreshed-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (m *MockTokenProvider) Client(ctx context.Context, accessToken string) *http.Client {
	return http.DefaultClient
}

// RefreshCount returns how many refreshes have been requested.
func (m *MockTokenProvider) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Refreshes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
