// internal/files/store.go
package files

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	ferrors "filemgr/internal/errors"
	"filemgr/internal/logging"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store provides the storage primitives every higher component builds on.
// Names are resolved relative to the root of the underlying afero.Fs.
type Store struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewStore(fsys afero.Fs, logger *zap.Logger) *Store {
	return &Store{
		fs:     fsys,
		logger: logging.OrNop(logger),
	}
}

// NewOSStore roots a Store at dir on the real filesystem.
func NewOSStore(dir string, logger *zap.Logger) *Store {
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// Fs exposes the underlying filesystem for components that stream files.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// CheckName rejects names that would escape the flat working directory.
func CheckName(op, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ferrors.InvalidName(op, name)
	}
	return nil
}

func (s *Store) Exists(name string) bool {
	if CheckName("exists", name) != nil {
		return false
	}
	_, err := s.fs.Stat(name)
	return err == nil
}

// Create makes a new zero-length file. It never truncates an existing one.
func (s *Store) Create(name string) error {
	const op = "create"
	if err := CheckName(op, name); err != nil {
		return err
	}
	if s.Exists(name) {
		return ferrors.AlreadyExists(op, name)
	}

	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return ferrors.FromOS(op, name, err)
	}
	if err := f.Close(); err != nil {
		return ferrors.IO(op, name, err)
	}

	s.logger.Debug("created file", zap.String("file", name))
	return nil
}

func (s *Store) Delete(name string) error {
	const op = "delete"
	if err := CheckName(op, name); err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil {
		return ferrors.FromOS(op, name, err)
	}

	s.logger.Debug("deleted file", zap.String("file", name))
	return nil
}

// Rename moves oldName onto newName. It is only used to commit rewrites, so
// both names are expected to live in the same directory.
func (s *Store) Rename(oldName, newName string) error {
	const op = "rename"
	if err := s.fs.Rename(oldName, newName); err != nil {
		return ferrors.IO(op, oldName+" -> "+newName, err)
	}
	return nil
}

func (s *Store) ReadAll(name string) ([]byte, error) {
	const op = "read"
	if err := CheckName(op, name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, ferrors.FromOS(op, name, err)
	}
	return data, nil
}

// Copy creates dest with the exact bytes of source. source is never modified.
func (s *Store) Copy(source, dest string) error {
	const op = "copy"
	if err := CheckName(op, source); err != nil {
		return err
	}
	if err := CheckName(op, dest); err != nil {
		return err
	}
	if s.Exists(dest) {
		return ferrors.AlreadyExists(op, dest)
	}

	src, err := s.fs.Open(source)
	if err != nil {
		return ferrors.FromOS(op, source, err)
	}
	defer src.Close()

	if err := s.writeNew(op, dest, src); err != nil {
		return err
	}

	s.logger.Debug("copied file", zap.String("from", source), zap.String("to", dest))
	return nil
}

// WriteNew creates name holding data. It fails with AlreadyExists rather than
// overwrite anything.
func (s *Store) WriteNew(name string, data []byte) error {
	const op = "write"
	if err := CheckName(op, name); err != nil {
		return err
	}
	return s.writeNew(op, name, bytes.NewReader(data))
}

func (s *Store) writeNew(op, name string, r io.Reader) error {
	dst, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return ferrors.FromOS(op, name, err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		s.removeQuietly(name)
		return ferrors.IO(op, name, err)
	}
	if err := dst.Close(); err != nil {
		s.removeQuietly(name)
		return ferrors.IO(op, name, err)
	}
	return nil
}

// Append adds data to the end of an existing file.
func (s *Store) Append(name string, data []byte) error {
	const op = "append"
	if err := CheckName(op, name); err != nil {
		return err
	}

	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return ferrors.FromOS(op, name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return ferrors.IO(op, name, err)
	}
	if err := f.Close(); err != nil {
		return ferrors.IO(op, name, err)
	}
	return nil
}

// List returns the visible entries of the working directory, sorted by name.
// Dot-files are skipped.
func (s *Store) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, ".")
	if err != nil {
		return nil, ferrors.FromOS("list", ".", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasPrefix(info.Name(), ".") {
			continue
		}
		name := info.Name()
		if info.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) removeQuietly(name string) {
	if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to clean up partial file", zap.String("file", name), zap.Error(err))
	}
}
