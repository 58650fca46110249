package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/archive"
	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/config"
	"github.com/dmitrijs2005/imagegen/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/imagegen/internal/client/services"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/dmitrijs2005/imagegen/internal/logging"

	_ "modernc.org/sqlite"
)

// App holds the wired services behind the REPL.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	session services.Session
	prompts services.PromptService
	ops     services.OpsService
	gen     services.Generator
	api     client.Client

	reader *bufio.Reader
	out    io.Writer
	closer io.Closer

	// pending tracks background generations so Run can wait for them.
	pending sync.WaitGroup
}

// NewApp opens the local database, builds the API client and the services.
// Archiving is enabled only when cfg.Archive names a bucket.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(cfg.APIBaseURL, client.WithLogger(log))

	var opts []services.GeneratorOption
	if cfg.Archive.Enabled() {
		arch, err := archive.New(ctx, cfg.Archive, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		opts = append(opts, services.WithArchiver(arch))
	}

	a := newApp(cfg, api, metadata.NewSQLiteTokenStore(db), log, bufio.NewReader(os.Stdin), os.Stdout, opts...)
	a.closer = db
	return a, nil
}

func newApp(cfg *config.Config, api client.Client, store metadata.TokenStorage, log logging.Logger,
	reader *bufio.Reader, out io.Writer, opts ...services.GeneratorOption) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		cfg:     cfg,
		log:     log,
		api:     api,
		session: services.NewSession(api, store, log),
		prompts: services.NewPromptService(api, log),
		ops:     services.NewOpsService(api, log),
		gen:     services.NewGenerator(api, log, opts...),
		reader:  reader,
		out:     out,
	}
}

// Run restores the saved session, asks for a token when there is none and
// serves the REPL until the user exits or ctx is cancelled. Background
// generations are cancelled and awaited before returning.
func (a *App) Run(ctx context.Context) {
	defer a.shutdown()

	unsubscribe := a.session.Subscribe(func(st services.SessionState) {
		a.log.Debug(ctx, "session changed", "authenticated", st.Authenticated, "checking", st.CheckingAuth)
	})
	defer unsubscribe()

	fmt.Fprintln(a.out, "Welcome to imagegen. Type \"help\" for commands.")

	st := a.session.Restore(ctx)
	if st.Authenticated {
		fmt.Fprintln(a.out, "Session restored.")
	} else if ctx.Err() == nil {
		if err := a.Login(ctx); err != nil {
			report(err)
		}
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) shutdown() {
	a.gen.Reset()
	a.pending.Wait()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.log.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

// Interrupt handles Ctrl-C. It cancels the running generation and reports
// whether there was one; when false the caller should exit.
func (a *App) Interrupt() bool {
	if a.gen.Cancel() {
		fmt.Fprintln(a.out, "Generation cancelled.")
		return true
	}
	return false
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Authenticated
}

func (a *App) status() string {
	switch {
	case !a.isLoggedIn():
		return "[guest]"
	case a.gen.InFlight():
		return "[generating]"
	default:
		return "[" + common.MaskToken(a.session.Token()) + "]"
	}
}

// callCtx applies the configured request timeout, if any.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg != nil && a.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, a.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (a *App) pollInterval() time.Duration {
	if a.cfg == nil {
		return 0
	}
	return a.cfg.LogPollInterval
}
