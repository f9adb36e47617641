// Package dispatch runs file manager operations and records each successful
// one in the changelog.
//
// A mutation is always performed first; its audit line is written only
// after it succeeds. A failure while writing the audit line does not undo
// the mutation and is reported separately in Result.LogErr.
package dispatch

import (
	"errors"
	"fmt"

	"filemgr/internal/changelog"
	ferrors "filemgr/internal/errors"
	"filemgr/internal/files"
	"filemgr/internal/lines"
	"filemgr/internal/logging"
	"filemgr/internal/safe"

	"go.uber.org/zap"
)

// Result is what a successful operation produced.
type Result struct {
	// Message summarises what was done.
	Message string
	// Output is the body to show: file content, a line or a changelog.
	Output string
	Count  int
	// Entries holds directory names for ListDir.
	Entries []string
	Backups []safe.Entry

	// Before and After are the file images around a line rewrite. They are
	// only filled when the dispatcher was built WithImages.
	Before []byte
	After  []byte

	// LogErr is set when the operation succeeded but its changelog
	// bookkeeping did not.
	LogErr error
}

// Backups is the part of safe.Safe the dispatcher needs for recovery.
type Backups interface {
	Get(id string) (safe.Entry, []byte, error)
	Release(id string) error
	List() ([]safe.Entry, error)
}

type Dispatcher struct {
	store   *files.Store
	engine  *lines.Engine
	log     *changelog.Log
	backups Backups
	images  bool
	logger  *zap.Logger
}

type Option func(*Dispatcher)

// WithBackups enables ListBackups and Recover.
func WithBackups(b Backups) Option {
	return func(d *Dispatcher) { d.backups = b }
}

// WithImages makes line rewrites report the file before and after.
func WithImages() Option {
	return func(d *Dispatcher) { d.images = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func New(store *files.Store, engine *lines.Engine, log *changelog.Log, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		engine: engine,
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrNop(d.logger)
	return d
}

// Run performs op. A non-nil error means op itself failed and nothing was
// recorded.
func (d *Dispatcher) Run(op Op) (*Result, error) {
	d.logger.Debug("running operation", zap.String("op", Name(op)))

	switch op := op.(type) {
	case Create:
		if err := d.store.Create(op.Name); err != nil {
			return nil, err
		}
		return d.record(&Result{Message: fmt.Sprintf("Successfully created file '%s'", op.Name)},
			op.Name, changelog.CreateFile), nil

	case ReadFile:
		content, err := d.engine.ReadWhole(op.Name)
		if err != nil {
			return nil, err
		}
		return d.record(&Result{Output: string(content)}, op.Name, changelog.ReadFile), nil

	case Copy:
		if err := d.store.Copy(op.Source, op.Dest); err != nil {
			return nil, err
		}
		res := &Result{Message: fmt.Sprintf("Successfully copied file '%s' to '%s'", op.Source, op.Dest)}
		return d.record(res, op.Dest, changelog.CreateFile), nil

	case Delete:
		if err := d.store.Delete(op.Name); err != nil {
			return nil, err
		}
		res := &Result{Message: fmt.Sprintf("Successfully deleted file '%s'", op.Name)}
		if err := d.log.DeleteRecord(op.Name); err != nil {
			if errors.Is(err, ferrors.ErrNotFound) {
				d.logger.Debug("no changelog record to delete", zap.String("file", op.Name))
			} else {
				res.LogErr = err
			}
		}
		return res, nil

	case Append:
		if err := d.engine.AppendLine(op.Name, op.Content); err != nil {
			return nil, err
		}
		res := &Result{Message: fmt.Sprintf("Successfully appended content to file '%s'", op.Name)}
		return d.record(res, op.Name, changelog.AppendLine), nil

	case DeleteLine:
		res := &Result{Message: fmt.Sprintf("Successfully deleted line %d from '%s'", op.Line, op.Name)}
		err := d.rewrite(res, op.Name, func() error {
			return d.engine.DeleteLine(op.Name, op.Line)
		})
		if err != nil {
			return nil, err
		}
		return d.record(res, op.Name, changelog.DeleteLine), nil

	case InsertLine:
		res := &Result{Message: fmt.Sprintf("Successfully inserted content at line %d in '%s'", op.Line, op.Name)}
		err := d.rewrite(res, op.Name, func() error {
			return d.engine.InsertLine(op.Name, op.Content, op.Line)
		})
		if err != nil {
			return nil, err
		}
		return d.record(res, op.Name, changelog.InsertLine), nil

	case ShowLine:
		line, err := d.engine.ReadLine(op.Name, op.Line)
		if err != nil {
			return nil, err
		}
		return d.record(&Result{Output: line}, op.Name, changelog.ReadLine), nil

	case CountLines:
		count, err := d.engine.CountLines(op.Name)
		if err != nil {
			return nil, err
		}
		res := &Result{
			Count:   count,
			Message: fmt.Sprintf("Number of lines in '%s': %d", op.Name, count),
		}
		return d.record(res, op.Name, changelog.ReadFile), nil

	case ListDir:
		entries, err := d.store.List()
		if err != nil {
			return nil, err
		}
		return &Result{Entries: entries}, nil

	case ResetChangelog:
		if err := d.log.Reset(op.Name); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("Successfully reset changelog for '%s'", op.Name)}, nil

	case ShowChangelog:
		content, err := d.log.Show(op.Name)
		if err != nil {
			return nil, err
		}
		return &Result{Output: content}, nil

	case ListBackups:
		if d.backups == nil {
			return &Result{}, nil
		}
		entries, err := d.backups.List()
		if err != nil {
			return nil, ferrors.IO("list backups", "", err)
		}
		return &Result{Backups: entries}, nil

	case Recover:
		return d.recover(op)

	default:
		panic(fmt.Sprintf("dispatch: unhandled operation %T", op))
	}
}

// rewrite runs a line rewrite, capturing the file around it when asked.
func (d *Dispatcher) rewrite(res *Result, name string, fn func() error) error {
	if !d.images {
		return fn()
	}

	before, err := d.engine.ReadWhole(name)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	after, err := d.engine.ReadWhole(name)
	if err != nil {
		d.logger.Warn("could not re-read rewritten file", zap.String("file", name), zap.Error(err))
		return nil
	}
	res.Before, res.After = before, after
	return nil
}

func (d *Dispatcher) recover(op Recover) (*Result, error) {
	const name = "recover"
	if d.backups == nil {
		return nil, ferrors.NotFound(name, op.ID, errors.New("backups are disabled"))
	}
	if err := files.CheckName(name, op.Dest); err != nil {
		return nil, err
	}

	entry, content, err := d.backups.Get(op.ID)
	if errors.Is(err, safe.ErrBackupNotFound) {
		return nil, ferrors.NotFound(name, op.ID, err)
	}
	if err != nil {
		return nil, ferrors.IO(name, op.ID, err)
	}

	if err := d.store.WriteNew(op.Dest, content); err != nil {
		return nil, err
	}
	if err := d.backups.Release(op.ID); err != nil {
		d.logger.Warn("recovered backup could not be released", zap.String("backup", op.ID), zap.Error(err))
	}

	res := &Result{Message: fmt.Sprintf("Recovered '%s' from backup %s into '%s'", entry.Source, op.ID, op.Dest)}
	return d.record(res, op.Dest, changelog.CreateFile), nil
}

func (d *Dispatcher) record(res *Result, name string, action changelog.Action) *Result {
	if err := d.log.RecordAction(name, action); err != nil {
		d.logger.Warn("changelog update failed",
			zap.String("file", name),
			zap.Stringer("action", action),
			zap.Error(err))
		res.LogErr = err
	}
	return res
}
