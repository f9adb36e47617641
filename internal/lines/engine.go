// internal/lines/engine.go
package lines

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	ferrors "filemgr/internal/errors"
	"filemgr/internal/files"
	"filemgr/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// errStopScan ends a read-only scan once the wanted line has been seen.
var errStopScan = errors.New("stop scan")

// Backup keeps a file's pre-image while a rewrite is committed, so that a
// failed rename after the original was removed does not lose data.
type Backup interface {
	Store(source string, content []byte) (string, error)
	Release(id string) error
}

// CommitError reports a rewrite whose original was removed but whose scratch
// file could not be renamed into place.
type CommitError struct {
	Name     string
	Scratch  string
	BackupID string
	Err      error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("commit %q: original removed but rewritten copy %q could not be moved into place: %v",
		e.Name, e.Scratch, e.Err)
	if e.BackupID != "" {
		return msg + fmt.Sprintf(" (original content preserved as backup %s)", e.BackupID)
	}
	return msg + " (original content lost)"
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Engine performs line-level operations on files in a files.Store. Rewrites
// stream the original into a uniquely named scratch file next to it, then
// delete the original and rename the scratch file over it.
//
// An Engine is not safe for concurrent use on the same file.
type Engine struct {
	store  *files.Store
	fs     afero.Fs
	backup Backup
	logger *zap.Logger
}

type Option func(*Engine)

func WithBackup(b Backup) Option {
	return func(e *Engine) { e.backup = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store *files.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		fs:    store.Fs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	return e
}

// CountLines returns the line count of the named file.
func (e *Engine) CountLines(name string) (int, error) {
	const op = "count lines"
	f, err := e.open(op, name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count, err := countReader(f)
	if err != nil {
		return 0, ferrors.IO(op, name, err)
	}
	return count, nil
}

// ReadWhole returns the full content of the named file.
func (e *Engine) ReadWhole(name string) ([]byte, error) {
	return e.store.ReadAll(name)
}

// ReadLine returns line n without its line break.
func (e *Engine) ReadLine(name string, n int) (string, error) {
	const op = "read line"
	f, err := e.open(op, name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := e.validateFile(op, name, f, n); err != nil {
		return "", err
	}

	var found []byte
	err = eachLine(f, func(lineNo int, line []byte) error {
		if lineNo == n {
			found = append(found, line[:len(line)-1]...)
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return "", ferrors.IO(op, name, err)
	}
	return string(found), nil
}

// AppendLine adds content and a line break to the end of an existing file.
func (e *Engine) AppendLine(name, content string) error {
	const op = "append line"
	if err := files.CheckName(op, name); err != nil {
		return err
	}
	if !e.store.Exists(name) {
		return ferrors.NotFound(op, name, nil)
	}
	if err := e.store.Append(name, []byte(content+"\n")); err != nil {
		return err
	}

	e.logger.Debug("appended line", zap.String("file", name))
	return nil
}

// InsertLine places content as a new line n, pushing the line that was there
// and everything after it down by one.
func (e *Engine) InsertLine(name, content string, n int) error {
	return e.rewrite("insert line", name, n, func(w *bufio.Writer, lineNo int, line []byte) error {
		if lineNo == n {
			if _, err := w.WriteString(content); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		_, err := w.Write(line)
		return err
	})
}

// DeleteLine removes line n together with its line break.
func (e *Engine) DeleteLine(name string, n int) error {
	return e.rewrite("delete line", name, n, func(w *bufio.Writer, lineNo int, line []byte) error {
		if lineNo == n {
			return nil
		}
		_, err := w.Write(line)
		return err
	})
}

type lineEdit func(w *bufio.Writer, lineNo int, line []byte) error

// rewrite runs Open-Source, Validate, Open-Scratch, Stream-Copy, Close,
// Delete-Source and Rename-Scratch in that order. Failures before
// Delete-Source leave the original untouched.
func (e *Engine) rewrite(op, name string, n int, edit lineEdit) error {
	log := e.logger.With(zap.String("op", op), zap.String("file", name), zap.Int("line", n))

	src, err := e.open(op, name)
	if err != nil {
		return err
	}
	srcClosed := false
	defer func() {
		if !srcClosed {
			src.Close()
		}
	}()

	if err := e.validateFile(op, name, src, n); err != nil {
		return err
	}

	scratch := scratchName(name)
	dst, err := e.fs.OpenFile(scratch, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return ferrors.IO(op, name, fmt.Errorf("opening scratch file: %w", err))
	}
	log.Debug("streaming to scratch file", zap.String("scratch", scratch))

	w := bufio.NewWriter(dst)
	err = eachLine(src, func(lineNo int, line []byte) error {
		return edit(w, lineNo, line)
	})
	if err == nil {
		err = w.Flush()
	}
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	srcClosed = true
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		e.discardScratch(log, scratch)
		return ferrors.IO(op, name, err)
	}

	backupID, err := e.preserve(name)
	if err != nil {
		e.discardScratch(log, scratch)
		return ferrors.IO(op, name, fmt.Errorf("preserving original: %w", err))
	}

	if err := e.store.Delete(name); err != nil {
		e.discardScratch(log, scratch)
		e.release(log, backupID)
		return err
	}

	if err := e.store.Rename(scratch, name); err != nil {
		log.Error("original removed but rename failed",
			zap.String("scratch", scratch),
			zap.String("backup", backupID),
			zap.Error(err))
		return &CommitError{Name: name, Scratch: scratch, BackupID: backupID, Err: err}
	}

	e.release(log, backupID)
	log.Debug("rewrite committed")
	return nil
}

func (e *Engine) open(op, name string) (afero.File, error) {
	if err := files.CheckName(op, name); err != nil {
		return nil, err
	}
	f, err := e.fs.Open(name)
	if err != nil {
		return nil, ferrors.FromOS(op, name, err)
	}
	return f, nil
}

// validateFile counts the lines of f, checks n against them and rewinds f.
func (e *Engine) validateFile(op, name string, f afero.File, n int) error {
	count, err := countReader(f)
	if err != nil {
		return ferrors.IO(op, name, err)
	}
	if err := validate(op, name, n, count); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ferrors.IO(op, name, err)
	}
	return nil
}

func (e *Engine) preserve(name string) (string, error) {
	if e.backup == nil {
		return "", nil
	}
	content, err := afero.ReadFile(e.fs, name)
	if err != nil {
		return "", err
	}
	return e.backup.Store(name, content)
}

func (e *Engine) release(log *zap.Logger, id string) {
	if id == "" {
		return
	}
	if err := e.backup.Release(id); err != nil {
		log.Warn("failed to release backup", zap.String("backup", id), zap.Error(err))
	}
}

func (e *Engine) discardScratch(log *zap.Logger, scratch string) {
	if err := e.fs.Remove(scratch); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove scratch file", zap.String("scratch", scratch), zap.Error(err))
	}
}

// scratchName is unique per call and hidden from directory listings.
func scratchName(name string) string {
	return fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString())
}
