// Package changelog keeps a per-file audit trail of the actions performed on
// each target file.
//
// Every target file name maps to one record, <name>.changelog, inside a
// single flat changelog directory. A record holds one line per action:
//
//	[Inserted line] Number of lines after action: 4
//
// Records are created on the first append and are removed, never truncated,
// by Reset and DeleteRecord.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"

	ferrors "filemgr/internal/errors"
	"filemgr/internal/files"
	"filemgr/internal/lines"
	"filemgr/internal/logging"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RecordSuffix is appended to a target file name to form its record name.
const RecordSuffix = ".changelog"

// Action is the closed set of actions a record can describe.
type Action int

const (
	InsertLine Action = iota
	AppendLine
	DeleteLine
	CreateFile
	ReadFile
	ReadLine
)

// Label returns the text written between brackets in an audit line.
func (a Action) Label() string {
	switch a {
	case InsertLine:
		return "Inserted line"
	case AppendLine:
		return "Appended line"
	case DeleteLine:
		return "Deleted line"
	case CreateFile:
		return "Created file"
	case ReadFile:
		return "Read File"
	case ReadLine:
		return "Read Line"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func (a Action) String() string {
	return a.Label()
}

// RecordName returns the record file name for a target file.
func RecordName(name string) string {
	return name + RecordSuffix
}

// FormatEntry renders one audit line without its line break.
func FormatEntry(action Action, count int) string {
	return fmt.Sprintf("[%s] Number of lines after action: %d", action.Label(), count)
}

// Log reads target files from one filesystem and keeps their records in
// another, rooted at the changelog directory.
type Log struct {
	targets afero.Fs
	records afero.Fs
	dir     string
	logger  *zap.Logger
}

// NewLog builds a Log. dir is the changelog directory that records is rooted
// at; it is only used for reporting and for Follow.
func NewLog(targets, records afero.Fs, dir string, logger *zap.Logger) *Log {
	return &Log{
		targets: targets,
		records: records,
		dir:     dir,
		logger:  logging.OrNop(logger),
	}
}

// NewOSLog roots targets at workDir and records at changelogDir on disk.
func NewOSLog(workDir, changelogDir string, logger *zap.Logger) *Log {
	osFs := afero.NewOsFs()
	return NewLog(
		afero.NewBasePathFs(osFs, workDir),
		afero.NewBasePathFs(osFs, changelogDir),
		changelogDir,
		logger,
	)
}

// Dir returns the changelog directory.
func (l *Log) Dir() string {
	return l.dir
}

// Path returns the full path of the record for name.
func (l *Log) Path(name string) string {
	return filepath.Join(l.dir, RecordName(name))
}

// RecordAction appends one audit line for name. The line count is taken from
// a fresh read of the target file, never from a cached value.
func (l *Log) RecordAction(name string, action Action) error {
	const op = "record action"
	if err := files.CheckName(op, name); err != nil {
		return err
	}

	content, err := afero.ReadFile(l.targets, name)
	if err != nil {
		return ferrors.IO(op, name, fmt.Errorf("re-reading target: %w", err))
	}
	count := lines.CountLines(content)

	record := RecordName(name)
	f, err := l.records.OpenFile(record, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return ferrors.IO(op, name, fmt.Errorf("opening record: %w", err))
	}
	if _, err := fmt.Fprintln(f, FormatEntry(action, count)); err != nil {
		f.Close()
		return ferrors.IO(op, name, fmt.Errorf("writing record: %w", err))
	}
	if err := f.Close(); err != nil {
		return ferrors.IO(op, name, err)
	}

	l.logger.Debug("recorded action",
		zap.String("file", name),
		zap.Stringer("action", action),
		zap.Int("lines", count))
	return nil
}

// Reset removes the record for name; the next RecordAction starts it afresh.
func (l *Log) Reset(name string) error {
	return l.remove("reset changelog", name)
}

// DeleteRecord removes the record of a target file that has been deleted.
func (l *Log) DeleteRecord(name string) error {
	return l.remove("delete changelog", name)
}

func (l *Log) remove(op, name string) error {
	if err := files.CheckName(op, name); err != nil {
		return err
	}
	if err := l.records.Remove(RecordName(name)); err != nil {
		return ferrors.FromOS(op, name, err)
	}
	l.logger.Debug("removed record", zap.String("file", name))
	return nil
}

// Show returns the full content of the record for name.
func (l *Log) Show(name string) (string, error) {
	const op = "show changelog"
	if err := files.CheckName(op, name); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(l.records, RecordName(name))
	if err != nil {
		return "", ferrors.FromOS(op, name, err)
	}
	return string(data), nil
}
