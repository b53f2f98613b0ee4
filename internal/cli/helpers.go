package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sadopc/stepr/internal/aggregate"
	"github.com/sadopc/stepr/internal/config"
	"github.com/sadopc/stepr/internal/credential"
	"github.com/sadopc/stepr/internal/health"
	"github.com/sadopc/stepr/internal/logging"
	"github.com/sadopc/stepr/internal/prefs"
	"github.com/sadopc/stepr/internal/store"
)

// env is everything a command needs once the config is loaded.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	creds  *credential.Store
	agg    *aggregate.Aggregator
	loc    *time.Location

	closers []io.Closer
}

// loadConfig reads --config when given, otherwise the default path,
// creating it on first use.
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	if g.Config != "" {
		return config.LoadOrCreateAt(g.Config)
	}
	return config.LoadOrCreate()
}

// openEnv loads the config and opens the database. Interactive sessions
// never log to stderr because the terminal belongs to the UI.
func openEnv(g *GlobalFlags, interactive bool) (*env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		cfg.Logging.Level = "debug"
	}

	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}

	var logOut io.Writer = os.Stderr
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	switch {
	case logPath != "":
		f, err := logging.OpenFile(logPath)
		if err != nil {
			return nil, err
		}
		closers = append(closers, f)
		logOut = f
	case interactive:
		logOut = io.Discard
	}
	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		closeAll()
		return nil, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		closeAll()
		return nil, err
	}
	s, err := store.New(dbPath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	closers = append(closers, s)

	p, err := preferenceStore(cfg, s)
	if err != nil {
		closeAll()
		return nil, err
	}

	e, err := newEnv(cfg, s, p, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	e.closers = closers
	logger.Debug("opened database", "path", dbPath, "encrypted_prefs", cfg.Credentials.Encrypted)
	return e, nil
}

// preferenceStore wraps the settings table in the encrypting decorator
// unless encryption is switched off.
func preferenceStore(cfg *config.Config, s *store.Store) (prefs.Store, error) {
	if !cfg.Credentials.Encrypted {
		return s, nil
	}
	keyPath, err := cfg.KeyPath()
	if err != nil {
		return nil, err
	}
	key, err := prefs.LoadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return prefs.NewEncrypted(s, key)
}

// newEnv wires the components over an already opened store (used by tests).
func newEnv(cfg *config.Config, s *store.Store, p prefs.Store, logger *slog.Logger) (*env, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(s, logger.With("component", "aggregate"))
	agg.Concurrency = cfg.Aggregation.Concurrency
	agg.Retries = cfg.Aggregation.Retries

	return &env{
		cfg:    cfg,
		logger: logger,
		store:  s,
		creds:  credential.New(p, logger.With("component", "credential")),
		agg:    agg,
		loc:    loc,
	}, nil
}

func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// aggregate checks the source and runs one aggregation.
func (e *env) aggregate(ctx context.Context, ref time.Time, days int) ([]aggregate.DailyStepRecord, error) {
	if err := health.CheckAvailable(ctx, e.store); err != nil {
		return nil, err
	}
	return e.agg.Aggregate(ctx, ref, days)
}

// windowDays returns the flag value, or the configured window when unset.
func (e *env) windowDays(flag int) int {
	if flag != 0 {
		return flag
	}
	return e.cfg.Aggregation.WindowDays
}

// referenceDate parses a YYYY-MM-DD date in loc, defaulting to today.
func referenceDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(aggregate.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

// readPassword returns the flag value, or the first line of r when
// fromStdin is set.
func readPassword(flag string, fromStdin bool, r io.Reader) (string, error) {
	if !fromStdin {
		return flag, nil
	}
	if flag != "" {
		return "", fmt.Errorf("--password and --password-stdin are mutually exclusive")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
