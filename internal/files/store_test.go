package files

import (
	"errors"
	"testing"

	ferrors "filemgr/internal/errors"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return NewStore(fsys, nil), fsys
}

func TestCreate(t *testing.T) {
	store, fsys := setupStore(t)

	t.Run("new file is empty", func(t *testing.T) {
		require.NoError(t, store.Create("new.txt"))
		assert.True(t, store.Exists("new.txt"))

		data, err := afero.ReadFile(fsys, "new.txt")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("existing file is untouched", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fsys, "keep.txt", []byte("a\nb\n"), 0644))

		err := store.Create("keep.txt")
		assert.ErrorIs(t, err, ferrors.ErrAlreadyExists)

		data, err := afero.ReadFile(fsys, "keep.txt")
		require.NoError(t, err)
		assert.Equal(t, "a\nb\n", string(data))
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "dir/file.txt", `dir\file.txt`} {
			assert.ErrorIs(t, store.Create(name), ferrors.ErrInvalidName, name)
		}
	})
}

func TestExists(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "a.txt", nil, 0644))

	assert.True(t, store.Exists("a.txt"))
	assert.False(t, store.Exists("b.txt"))
	assert.False(t, store.Exists("../a.txt"))
}

func TestDelete(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "a.txt", []byte("x\n"), 0644))

	require.NoError(t, store.Delete("a.txt"))
	assert.False(t, store.Exists("a.txt"))

	err := store.Delete("a.txt")
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestRename(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "old.txt", []byte("x\n"), 0644))

	require.NoError(t, store.Rename("old.txt", "new.txt"))
	assert.False(t, store.Exists("old.txt"))
	assert.True(t, store.Exists("new.txt"))

	err := store.Rename("missing.txt", "other.txt")
	assert.ErrorIs(t, err, ferrors.ErrIO)
}

func TestReadAll(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "a.txt", []byte("x\ny"), 0644))

	data, err := store.ReadAll("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "x\ny", string(data))

	_, err = store.ReadAll("missing.txt")
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestCopy(t *testing.T) {
	store, fsys := setupStore(t)
	content := []byte("first\nsecond\nno newline")
	require.NoError(t, afero.WriteFile(fsys, "src.txt", content, 0644))

	t.Run("exact bytes", func(t *testing.T) {
		require.NoError(t, store.Copy("src.txt", "dst.txt"))

		got, err := afero.ReadFile(fsys, "dst.txt")
		require.NoError(t, err)
		assert.Equal(t, content, got)

		src, err := afero.ReadFile(fsys, "src.txt")
		require.NoError(t, err)
		assert.Equal(t, content, src)
	})

	t.Run("destination exists", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fsys, "taken.txt", []byte("mine\n"), 0644))
		err := store.Copy("src.txt", "taken.txt")
		assert.ErrorIs(t, err, ferrors.ErrAlreadyExists)

		got, err := afero.ReadFile(fsys, "taken.txt")
		require.NoError(t, err)
		assert.Equal(t, "mine\n", string(got))
	})

	t.Run("source missing", func(t *testing.T) {
		err := store.Copy("nope.txt", "fresh.txt")
		assert.ErrorIs(t, err, ferrors.ErrNotFound)
		assert.False(t, store.Exists("fresh.txt"))
	})
}

func TestWriteNew(t *testing.T) {
	store, fsys := setupStore(t)

	require.NoError(t, store.WriteNew("restored.txt", []byte("a\n")))
	got, err := afero.ReadFile(fsys, "restored.txt")
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(got))

	assert.ErrorIs(t, store.WriteNew("restored.txt", []byte("b\n")), ferrors.ErrAlreadyExists)
}

func TestAppend(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "a.txt", []byte("x\n"), 0644))

	require.NoError(t, store.Append("a.txt", []byte("y\n")))
	got, err := afero.ReadFile(fsys, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "x\ny\n", string(got))

	err = store.Append("missing.txt", []byte("z\n"))
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
	assert.False(t, store.Exists("missing.txt"))
}

func TestList(t *testing.T) {
	store, fsys := setupStore(t)
	require.NoError(t, afero.WriteFile(fsys, "b.txt", nil, 0644))
	require.NoError(t, afero.WriteFile(fsys, "a.txt", nil, 0644))
	require.NoError(t, afero.WriteFile(fsys, ".hidden", nil, 0644))
	require.NoError(t, fsys.Mkdir("changelog", 0755))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "changelog/"}, names)
}

func TestFaultFsDelete(t *testing.T) {
	base := afero.NewMemMapFs()
	fault := NewFaultFs(base)
	fault.RemoveErr = func(string) error { return errors.New("device busy") }
	store := NewStore(fault, nil)
	require.NoError(t, afero.WriteFile(base, "a.txt", nil, 0644))

	err := store.Delete("a.txt")
	assert.ErrorIs(t, err, ferrors.ErrIO)
	assert.True(t, store.Exists("a.txt"))
}
