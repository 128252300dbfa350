package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/replay/internal/repositories"
	"github.com/desertthunder/replay/internal/services"
	"github.com/desertthunder/replay/internal/shared"
	"github.com/desertthunder/replay/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, historyCommand, playlistCommand, playCommand, searchCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// session bundles the open database, repositories and gateway a command needs.
//
// Built per invocation so setup can run before the database file exists.
type session struct {
	db       *sql.DB
	users    *repositories.UserRepository
	catalog  *repositories.CatalogRepository
	listens  *repositories.ListenRepository
	provider *services.SpotifyProvider
	gateway  *services.Gateway
	resolver *tasks.Resolver
	ingestor *tasks.Ingestor
}

// openSession connects to the database and wires the full ingestion stack.
func (r *Runner) openSession() (*session, error) {
	creds := r.config.Credentials.Spotify
	provider, err := services.NewSpotifyProvider(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify provider: %w", err)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	users := repositories.NewUserRepository(db)
	catalog := repositories.NewCatalogRepository(db)
	listens := repositories.NewListenRepository(db)

	gateway := services.NewGateway(services.GatewayOpts{
		Users:      users,
		Provider:   provider,
		Logger:     r.logger,
		QueueSize:  r.config.Sync.QueueSize,
		Timeout:    time.Duration(r.config.Sync.RequestTimeoutSecs) * time.Second,
		ChunkSize:  r.config.Sync.ChunkSize,
		ChunkDelay: r.config.Sync.ChunkDelay(),
	})

	return &session{
		db:       db,
		users:    users,
		catalog:  catalog,
		listens:  listens,
		provider: provider,
		gateway:  gateway,
		resolver: tasks.NewResolver(gateway, catalog, r.logger),
		ingestor: tasks.NewIngestor(db, r.logger),
	}, nil
}

func (s *session) Close() {
	s.gateway.Close()
	s.db.Close()
}

// resolveUser finds the account a command should act on. An explicit --user id
// wins; otherwise a lone stored account is used.
func (r *Runner) resolveUser(s *session, cmd *cli.Command) (string, error) {
	if id := cmd.String("user"); id != "" {
		if _, err := s.users.User(id); err != nil {
			return "", err
		}
		return id, nil
	}

	users, err := s.users.List()
	if err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}

	switch len(users) {
	case 0:
		return "", fmt.Errorf("%w: no accounts stored, run 'replay auth' first", shared.ErrUserNotFound)
	case 1:
		return users[0].ID, nil
	default:
		return "", fmt.Errorf("%w: multiple accounts stored, pass --user", shared.ErrInvalidInput)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
