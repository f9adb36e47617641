package files

import (
	"os"

	"github.com/spf13/afero"
)

// FaultFs wraps an afero.Fs and fails selected calls. Tests use it to drive
// rewrites into their degraded states.
type FaultFs struct {
	afero.Fs

	// Each hook is consulted with the call's name; a non-nil result is
	// returned instead of performing the call.
	RemoveErr   func(name string) error
	RenameErr   func(oldName, newName string) error
	OpenFileErr func(name string, flag int) error
}

func NewFaultFs(base afero.Fs) *FaultFs {
	return &FaultFs{Fs: base}
}

func (f *FaultFs) Remove(name string) error {
	if f.RemoveErr != nil {
		if err := f.RemoveErr(name); err != nil {
			return &os.PathError{Op: "remove", Path: name, Err: err}
		}
	}
	return f.Fs.Remove(name)
}

func (f *FaultFs) Rename(oldName, newName string) error {
	if f.RenameErr != nil {
		if err := f.RenameErr(oldName, newName); err != nil {
			return &os.LinkError{Op: "rename", Old: oldName, New: newName, Err: err}
		}
	}
	return f.Fs.Rename(oldName, newName)
}

func (f *FaultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.OpenFileErr != nil {
		if err := f.OpenFileErr(name, flag); err != nil {
			return nil, &os.PathError{Op: "open", Path: name, Err: err}
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *FaultFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}
