package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"filemgr/internal/changelog"
	"filemgr/internal/config"
	"filemgr/internal/dispatch"
	"filemgr/internal/files"
	"filemgr/internal/lines"
	"filemgr/internal/logging"
	"filemgr/internal/safe"
	"filemgr/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app holds everything one invocation needs.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	db         *badger.DB
	log        *changelog.Log
	dispatcher *dispatch.Dispatcher
	printer    *printer
}

type appOptions struct {
	configPath string
	// workDir defaults to the process working directory.
	workDir string
	images  bool
	// noSafe skips the backup safe. Long-running commands set it so they
	// do not hold the backup database lock.
	noSafe bool
}

func openApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	cwd := opts.workDir
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	// Nothing can be logged without the changelog directory.
	dir, err := changelog.Bootstrap(afero.NewOsFs(), cwd, cfg.Changelog.Dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("changelog directory ready", zap.String("dir", dir))

	a := &app{
		cfg:     cfg,
		logger:  logger,
		printer: newPrinter(os.Stdout, os.Stderr, cfg.Diff.ContextLines),
	}

	store := files.NewOSStore(cwd, logger.Logger)
	engineOpts := []lines.Option{lines.WithLogger(logger.Logger)}
	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger.Logger)}
	if opts.images {
		dispatchOpts = append(dispatchOpts, dispatch.WithImages())
	}

	if cfg.Backup.Enabled && !opts.noSafe {
		vault, err := a.openSafe(cwd)
		if err != nil {
			a.close()
			return nil, err
		}
		engineOpts = append(engineOpts, lines.WithBackup(vault))
		dispatchOpts = append(dispatchOpts, dispatch.WithBackups(vault))
	}

	a.log = changelog.NewOSLog(cwd, dir, logger.Logger)
	a.dispatcher = dispatch.New(store, lines.NewEngine(store, engineOpts...), a.log, dispatchOpts...)
	return a, nil
}

func (a *app) openSafe(cwd string) (*safe.Safe, error) {
	root := a.cfg.Backup.Dir
	if !filepath.IsAbs(root) {
		root = filepath.Join(cwd, root)
	}

	db, err := storage.Open(filepath.Join(root, "db"))
	if err != nil {
		return nil, fmt.Errorf("opening backup database: %w", err)
	}
	a.db = db

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	vault, err := safe.New(afero.NewBasePathFs(osFs, root), db, safe.Options{
		CacheSize: a.cfg.Backup.CacheSize,
		Compression: safe.CompressionOptions{
			MinSize: a.cfg.Backup.CompressMinSize,
			Level:   safe.DefaultCompressionOptions().Level,
		},
		Logger: a.logger.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening backup safe: %w", err)
	}
	return vault, nil
}

// run dispatches op and prints its outcome. Only a failed op is an error.
func (a *app) run(op dispatch.Op) error {
	res, err := a.dispatcher.Run(op)
	if err != nil {
		a.printer.error(err)
		return errReported
	}
	a.printer.result(op, res)
	return nil
}

// follow prints name's changelog entries until ctx ends.
func (a *app) follow(ctx context.Context, name string) error {
	a.logger.WithFile(name).Debug("following changelog")
	return a.log.Follow(ctx, name, func(line string) {
		fmt.Fprintln(a.printer.out, line)
	})
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing backup database", zap.Error(err))
		}
	}
	a.logger.Sync()
}
