package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/configstore"
	"github.com/teemow/inboxbrief/internal/drive"
	"github.com/teemow/inboxbrief/internal/gmail"
	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/runlock"
	"github.com/teemow/inboxbrief/internal/sheets"
)

// Config store kinds.
const (
	ConfigSourceSheets = "sheets"
	ConfigSourceFile   = "file"
)

// ErrNoToken is returned when an account has not been authorized yet.
var ErrNoToken = errors.New("no OAuth token for account")

// Options configures a ServerContext. Zero values select the defaults.
type Options struct {
	// Account is used when a caller does not name one.
	Account string

	ConfigSource    string
	ConfigFile      string
	LabelsSheet     string
	ParametersSheet string

	OpenAIBaseURL string
	CompletionRPM int

	// Location is the zone digest time ranges are rendered in.
	Location *time.Location
	// Output receives dry run digests.
	Output io.Writer

	Defaults   config.Defaults
	Provider   *instrumentation.Provider
	Audit      *instrumentation.AuditLogger
	Locker     runlock.Locker
	Completion completion.Factory
	Logger     *slog.Logger
}

// ServerContext holds what the commands and MCP tools share: per account
// mailboxes and config stores, created lazily and cached, plus the
// completion factory, run lock and instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	mailboxes map[string]mail.Mailbox
	stores    map[string]config.Store
	lastRuns  map[string]RunInfo
	shutdown  bool
}

// NewServerContext creates a server context. Clients are not created until
// an account is first used.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Account == "" {
		opts.Account = google.DefaultAccount
	}
	if opts.ConfigSource == "" {
		opts.ConfigSource = ConfigSourceSheets
	}
	switch opts.ConfigSource {
	case ConfigSourceSheets:
	case ConfigSourceFile:
		if opts.ConfigFile == "" {
			return nil, fmt.Errorf("config source %q requires a config file", ConfigSourceFile)
		}
	default:
		return nil, fmt.Errorf("unsupported config source %q (supported: %s, %s)", opts.ConfigSource, ConfigSourceSheets, ConfigSourceFile)
	}
	if opts.LabelsSheet == "" {
		opts.LabelsSheet = configstore.DefaultLabelsSheet
	}
	if opts.ParametersSheet == "" {
		opts.ParametersSheet = configstore.DefaultParametersSheet
	}
	if opts.Defaults.CatchAll == "" {
		opts.Defaults = config.BuiltinDefaults()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Locker == nil {
		opts.Locker = runlock.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sc := &ServerContext{
		opts:      opts,
		logger:    opts.Logger,
		mailboxes: make(map[string]mail.Mailbox),
		stores:    make(map[string]config.Store),
		lastRuns:  make(map[string]RunInfo),
	}
	if sc.opts.Completion == nil {
		sc.opts.Completion = completion.NewFactory(completion.Config{
			BaseURL:           opts.OpenAIBaseURL,
			RequestsPerMinute: opts.CompletionRPM,
			Metrics:           sc.Metrics(),
			Logger:            opts.Logger,
		})
	}
	sc.ctx, sc.cancel = context.WithCancel(ctx)
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the base logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Account returns the default account.
func (sc *ServerContext) Account() string {
	return sc.opts.Account
}

// Defaults returns the built in configuration defaults.
func (sc *ServerContext) Defaults() config.Defaults {
	return sc.opts.Defaults
}

// Metrics returns the metrics recorder, or nil without instrumentation.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.opts.Provider == nil {
		return nil
	}
	return sc.opts.Provider.Metrics()
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.opts.Audit
}

// Completion returns the completion provider factory.
func (sc *ServerContext) Completion() completion.Factory {
	return sc.opts.Completion
}

// MailboxForAccount returns the mailbox for account, creating the Gmail
// client on first use. It fails with ErrNoToken for unauthorized accounts.
func (sc *ServerContext) MailboxForAccount(account string) (mail.Mailbox, error) {
	account = sc.account(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if mb, ok := sc.mailboxes[account]; ok {
		return mb, nil
	}
	if !google.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%w %q, run 'inboxbrief auth --account %s'", ErrNoToken, account, account)
	}

	client, err := gmail.NewClientForAccount(sc.ctx, account, sc.Metrics(), logging.WithAccount(sc.logger, account))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}
	sc.mailboxes[account] = client
	return client, nil
}

// SetMailboxForAccount sets the mailbox used for account.
func (sc *ServerContext) SetMailboxForAccount(account string, mb mail.Mailbox) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.mailboxes[sc.account(account)] = mb
}

// ConfigStoreForAccount returns the config store for account. Sheet backed
// stores need the account's token, file stores do not.
func (sc *ServerContext) ConfigStoreForAccount(account string) (config.Store, error) {
	account = sc.account(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if store, ok := sc.stores[account]; ok {
		return store, nil
	}

	var store config.Store
	switch sc.opts.ConfigSource {
	case ConfigSourceFile:
		store = configstore.NewFile(sc.opts.ConfigFile)
	default:
		if !google.HasTokenForAccount(account) {
			return nil, fmt.Errorf("%w %q", ErrNoToken, account)
		}
		driveClient, err := drive.NewClientForAccount(sc.ctx, account, sc.Metrics())
		if err != nil {
			return nil, fmt.Errorf("failed to create Drive client for account %s: %w", account, err)
		}
		sheetsClient, err := sheets.NewClientForAccount(sc.ctx, account, sc.Metrics())
		if err != nil {
			return nil, fmt.Errorf("failed to create Sheets client for account %s: %w", account, err)
		}
		store = configstore.NewSheets(driveClient, sheetsClient, sc.opts.LabelsSheet, sc.opts.ParametersSheet)
	}
	sc.stores[account] = store
	return store, nil
}

// SetConfigStoreForAccount sets the config store used for account.
func (sc *ServerContext) SetConfigStoreForAccount(account string, store config.Store) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stores[sc.account(account)] = store
}

// ConfigSourceForAccount returns a resolver reading the account's store.
func (sc *ServerContext) ConfigSourceForAccount(account string) (*config.Resolver, error) {
	store, err := sc.ConfigStoreForAccount(account)
	if err != nil {
		return nil, err
	}
	return config.NewResolver(store, sc.opts.Defaults, sc.logger), nil
}

// LastRuns returns the most recent run per job.
func (sc *ServerContext) LastRuns() map[string]RunInfo {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	runs := make(map[string]RunInfo, len(sc.lastRuns))
	for job, info := range sc.lastRuns {
		runs[job] = info
	}
	return runs
}

func (sc *ServerContext) recordRun(info RunInfo) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.lastRuns[info.Job] = info
}

func (sc *ServerContext) account(account string) string {
	if account == "" {
		return sc.opts.Account
	}
	return account
}

// Shutdown cancels the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}

// IsShutdown returns whether the server is shutting down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}
