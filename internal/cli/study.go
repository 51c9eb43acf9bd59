package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/database"
	"github.com/mrlokans/learncard/internal/database/books"
	dbevents "github.com/mrlokans/learncard/internal/database/events"
	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/database/users"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/progress"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/study"
	"github.com/mrlokans/learncard/internal/tasks"
	"github.com/mrlokans/learncard/internal/tui"
)

var errNotATerminal = errors.New("study needs an interactive terminal")

// StudyCommand runs the terminal client. It acts as a device of its own:
// progress is kept in a directory on this machine and reconciled with the
// server table on login, and pushed back when the program exits.
type StudyCommand struct {
	BookID      string
	Email       string
	Password    string
	Register    bool
	ProgressDir string
}

func newStudyCmd() *cobra.Command {
	c := &StudyCommand{}
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study a word book in the terminal",
		Long: `Study a word book one word at a time.

Keys: right/space/l next, left/h previous, g first, G last, d examples, q quit.

Without --email you study as a guest and nothing is saved. With --email the
password is read from the terminal unless --password is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), config.NewConfig(), os.Stdin, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&c.BookID, "book", "", "id of the book to study (required)")
	cmd.Flags().StringVar(&c.Email, "email", "", "log in with this email")
	cmd.Flags().StringVar(&c.Password, "password", "", "password, prompted for when omitted")
	cmd.Flags().BoolVar(&c.Register, "register", false, "create the account before logging in")
	cmd.Flags().StringVar(&c.ProgressDir, "progress-dir", "", "device progress directory (default: STUDY_PROGRESS_DIR)")
	_ = cmd.MarkFlagRequired("book")

	return cmd
}

func (c *StudyCommand) Run(ctx context.Context, cfg *config.Config, in *os.File, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !isTerminal(in) || !isTerminal(os.Stdout) {
		return errNotATerminal
	}
	if c.Email != "" && c.Password == "" {
		password, err := readPassword(in, out, "Password: ")
		if err != nil {
			return err
		}
		c.Password = password
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	provider, err := content.NewProvider(books.NewRepository(db.DB), cfg.Content.WordsCacheSize, cfg.Content.MaxWordsPerBook)
	if err != nil {
		return err
	}
	book, err := provider.Book(ctx, c.BookID)
	if err != nil {
		return fmt.Errorf("book %q: %w", c.BookID, err)
	}
	words, err := provider.ListWords(ctx, c.BookID)
	if err != nil {
		return fmt.Errorf("failed to load words: %w", err)
	}

	manager, eventsSvc, err := c.newManager(cfg, db)
	if err != nil {
		return err
	}
	if eventsSvc != nil {
		defer eventsSvc.Wait()
	}

	if c.Email != "" {
		if err := c.authenticate(ctx, manager); err != nil {
			return err
		}
		fmt.Fprintf(out, "Logged in as %s\n", c.Email)
	}
	// Hands the device map to the server table on the way out.
	defer manager.Expire(context.Background())

	nav := study.NewNavigator(c.BookID, words, manager)
	var saved *progress.BookProgress
	if entry, ok := manager.Entry(c.BookID); ok {
		saved = &entry
	}
	if err := nav.Start(saved); err != nil {
		return err
	}

	model := tui.NewModel(book.Title, nav, manager)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// newManager wires a session manager whose local store is a directory on
// this machine. Pushes run inline since there is no task queue here.
func (c *StudyCommand) newManager(cfg *config.Config, db *database.Database) (*session.Manager, *events.Service, error) {
	dir := c.ProgressDir
	if dir == "" {
		dir = cfg.Study.ProgressDir
	}
	backend, err := localstore.NewFileBackend(dir)
	if err != nil {
		return nil, nil, err
	}
	store := localstore.NewStore(backend, cfg.Progress.KeyPrefix)

	serverProgress := userprogress.NewRepository(db.DB)
	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)

	var eventsSvc *events.Service
	deps := session.Dependencies{
		Authenticator: auth.NewAuthenticator(authService),
		Server:        serverProgress,
		Store:         store,
	}
	if cfg.Events.Enabled {
		eventsSvc = events.NewService(dbevents.NewRepository(db.DB))
		deps.Recorder = eventsSvc
		deps.Syncer = tasks.NewProgressSyncer(nil, tasks.NewPusher(store, serverProgress, eventsSvc))
	} else {
		deps.Syncer = tasks.NewProgressSyncer(nil, tasks.NewPusher(store, serverProgress, nil))
	}
	return session.NewManager(deps), eventsSvc, nil
}

func (c *StudyCommand) authenticate(ctx context.Context, manager *session.Manager) error {
	var err error
	if c.Register {
		err = manager.Register(ctx, c.Email, c.Password)
	} else {
		err = manager.Login(ctx, c.Email, c.Password)
	}
	if err == nil {
		return nil
	}
	if session.IsTransient(err) {
		log.Printf("Failed to log in: %v", err)
	}
	return fmt.Errorf("login failed: %s", manager.Message())
}
