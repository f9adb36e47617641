package changelog

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultDir is the changelog directory name under the working directory.
const DefaultDir = "changelog"

// Bootstrap resolves dirName against cwd to an absolute path and creates the
// directory with mode 0755 if it is missing. An existing entry that is not a
// directory is an error; callers treat any error here as fatal.
func Bootstrap(fsys afero.Fs, cwd, dirName string) (string, error) {
	if dirName == "" {
		dirName = DefaultDir
	}
	dir := dirName
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving changelog directory: %w", err)
	}

	info, err := fsys.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("changelog directory %s exists and is not a directory", dir)
	case err == nil:
		return dir, nil
	}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating changelog directory %s: %w", dir, err)
	}
	return dir, nil
}
