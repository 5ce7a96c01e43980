package main

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/params"
	"github.com/uhyunpark/nostr-signerd/pkg/binding"
	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/identity"
	"github.com/uhyunpark/nostr-signerd/pkg/signing"
	"github.com/uhyunpark/nostr-signerd/pkg/storage"
	"github.com/uhyunpark/nostr-signerd/pkg/task"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

// daemon is the wired signing pipeline shared by every subcommand.
type daemon struct {
	cfg      params.Config
	logger   *zap.Logger
	sugar    *zap.SugaredLogger
	client   *coordinator.GRPCClient
	journal  storage.Journal
	provider *binding.Provider
}

func newDaemon(envPath string, logToFile bool) (*daemon, error) {
	cfg := params.LoadFromEnv(envPath)

	var (
		logger *zap.Logger
		err    error
	)
	if logToFile && cfg.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.LogFile, cfg.LogLevel)
	} else {
		logger, err = util.NewLogger(cfg.LogLevel)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	sugar := logger.Sugar()

	client, err := coordinator.Dial(coordinator.Config{
		Address:     cfg.Coordinator.Addr,
		CAFile:      cfg.Coordinator.CAFile,
		RPCTimeout:  cfg.Coordinator.RPCTimeout,
		DialTimeout: cfg.Coordinator.DialTimeout,
	}, sugar)
	if err != nil {
		return nil, err
	}

	var journal storage.Journal
	if cfg.JournalDir != "" {
		if err := os.MkdirAll(cfg.JournalDir, 0755); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to create journal directory")
		}
		store, err := storage.NewPebbleStore(cfg.JournalDir)
		if err != nil {
			client.Close()
			return nil, errors.Wrapf(err, "failed to open journal at %s", cfg.JournalDir)
		}
		journal = store
	} else {
		journal = storage.NewInMemoryJournal(0)
	}

	clock := util.RealClock{}
	poller := task.NewPoller(client, clock, task.Schedule{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
	}, sugar)
	signer := signing.NewSigner(poller, clock, journal, sugar)
	identities := identity.NewCache(identity.NewResolver(client, sugar), sugar)

	relays := make(binding.RelayMap, len(cfg.Relays))
	for _, r := range cfg.Relays {
		relays[r.URL] = binding.Relay{Read: r.Read, Write: r.Write}
	}

	sugar.Infow("signer_configured",
		"coordinator", cfg.Coordinator.Addr,
		"tls", cfg.Coordinator.CAFile != "",
		"poll_interval_ms", cfg.Poll.Interval.Milliseconds(),
		"poll_max_attempts", cfg.Poll.MaxAttempts,
		"journal_dir", cfg.JournalDir,
		"relays", len(relays),
	)

	return &daemon{
		cfg:      cfg,
		logger:   logger,
		sugar:    sugar,
		client:   client,
		journal:  journal,
		provider: binding.NewProvider(identities, signer, relays, sugar),
	}, nil
}

func (d *daemon) Close() {
	if err := d.journal.Close(); err != nil {
		d.sugar.Warnw("journal_close_failed", "error", err)
	}
	if err := d.client.Close(); err != nil {
		d.sugar.Warnw("coordinator_close_failed", "error", err)
	}
	d.logger.Sync()
}
