package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/runlock"
	"github.com/teemow/inboxbrief/internal/server"
)

// Lock kinds for --lock.
const (
	lockNone  = "none"
	lockFile  = "file"
	lockRedis = "redis"
)

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	envFile string
	account string

	configSource    string
	configFile      string
	labelsSheet     string
	parametersSheet string

	lock     string
	lockDir  string
	lockTTL  time.Duration
	redisURL string

	logLevel  string
	logFormat string

	pushgatewayURL string
	openAIBaseURL  string
	completionRPM  int
	timezone       string
}

var globals globalOptions

func addGlobalFlags(cmd *cobra.Command, o *globalOptions) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.envFile, "env-file", "", "Load environment variables from this file (default: .env if present)")
	f.StringVar(&o.account, "account", google.DefaultAccount, "Google account name to use. Can also use INBOXBRIEF_ACCOUNT env var.")
	f.StringVar(&o.configSource, "config-source", server.ConfigSourceSheets, "Where labels and parameters are read from: sheets or file. Can also use INBOXBRIEF_CONFIG_SOURCE env var.")
	f.StringVar(&o.configFile, "config-file", "", "TOML config file for --config-source=file. Can also use INBOXBRIEF_CONFIG_FILE env var.")
	f.StringVar(&o.labelsSheet, "labels-sheet", "", "Title of the labels spreadsheet (default \"Gmail Labeler Labels\")")
	f.StringVar(&o.parametersSheet, "parameters-sheet", "", "Title of the parameters spreadsheet (default \"Gmail Labeler Parameters\")")
	f.StringVar(&o.lock, "lock", lockNone, "Guard against overlapping runs: none, file or redis. Can also use INBOXBRIEF_LOCK env var.")
	f.StringVar(&o.lockDir, "lock-dir", "", "Directory for --lock=file (default: <tmp>/inboxbrief)")
	f.DurationVar(&o.lockTTL, "lock-ttl", runlock.DefaultTTL, "Age after which a lock is considered stale")
	f.StringVar(&o.redisURL, "redis-url", "", "Redis URL for --lock=redis, e.g. redis://localhost:6379/0. Can also use REDIS_URL env var.")
	f.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	f.StringVar(&o.logFormat, "log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
	f.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Push job metrics to this Prometheus pushgateway. Can also use PUSHGATEWAY_URL env var.")
	f.StringVar(&o.openAIBaseURL, "openai-base-url", "", "OpenAI compatible API base URL. Can also use OPENAI_BASE_URL env var.")
	f.IntVar(&o.completionRPM, "completion-rpm", 0, "Maximum completion requests per minute, 0 for unlimited. Can also use INBOXBRIEF_COMPLETION_RPM env var.")
	f.StringVar(&o.timezone, "timezone", "", "IANA time zone for digest time ranges (default: local). Can also use INBOXBRIEF_TIMEZONE env var.")
}

// app is the wiring shared by the commands.
type app struct {
	sc       *server.ServerContext
	provider *instrumentation.Provider
	logger   *slog.Logger
	closers  []func()
}

// newApp builds the logger, instrumentation, run lock and server context.
// Logs go to logOut; dry run digests go to out.
func newApp(ctx context.Context, o globalOptions, logOut, out io.Writer) (*app, error) {
	logger, err := logging.NewLogger(o.logLevel, o.logFormat, logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{logger: logger}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if o.pushgatewayURL != "" {
		instrConfig.PushgatewayURL = o.pushgatewayURL
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a.provider = provider
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	})

	locker, err := a.newLocker(ctx, o)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := time.Local
	if o.timezone != "" {
		loc, err = time.LoadLocation(o.timezone)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
		}
	}

	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		audit = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	sc, err := server.NewServerContext(ctx, server.Options{
		Account:         o.account,
		ConfigSource:    o.configSource,
		ConfigFile:      o.configFile,
		LabelsSheet:     o.labelsSheet,
		ParametersSheet: o.parametersSheet,
		OpenAIBaseURL:   o.openAIBaseURL,
		CompletionRPM:   o.completionRPM,
		Location:        loc,
		Output:          out,
		Defaults:        config.BuiltinDefaults(),
		Provider:        provider,
		Audit:           audit,
		Locker:          locker,
		Logger:          logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	a.sc = sc
	a.closers = append(a.closers, func() { _ = sc.Shutdown() })
	return a, nil
}

func (a *app) newLocker(ctx context.Context, o globalOptions) (runlock.Locker, error) {
	switch o.lock {
	case lockNone, "":
		return runlock.Noop{}, nil
	case lockFile:
		dir := o.lockDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "inboxbrief")
		}
		return runlock.NewFile(dir, o.lockTTL, a.logger), nil
	case lockRedis:
		if o.redisURL == "" {
			return nil, fmt.Errorf("--lock=%s requires --redis-url or REDIS_URL", lockRedis)
		}
		client, err := runlock.NewRedisClient(ctx, o.redisURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return runlock.NewRedis(client, o.lockTTL, a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported lock %q (supported: %s, %s, %s)", o.lock, lockNone, lockFile, lockRedis)
	}
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
