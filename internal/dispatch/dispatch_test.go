package dispatch

import (
	"errors"
	"strings"
	"testing"

	"filemgr/internal/changelog"
	ferrors "filemgr/internal/errors"
	"filemgr/internal/files"
	"filemgr/internal/lines"
	"filemgr/internal/safe"
	"filemgr/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	d       *Dispatcher
	fs      afero.Fs
	records afero.Fs
	log     *changelog.Log
}

func setup(t *testing.T, fsys afero.Fs, opts ...Option) *env {
	t.Helper()
	if fsys == nil {
		fsys = afero.NewMemMapFs()
	}
	records := afero.NewMemMapFs()
	store := files.NewStore(fsys, nil)
	log := changelog.NewLog(fsys, records, "/changelog", nil)
	return &env{
		d:       New(store, lines.NewEngine(store), log, opts...),
		fs:      fsys,
		records: records,
		log:     log,
	}
}

func (e *env) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, name, []byte(content), 0644))
}

func (e *env) read(t *testing.T, name string) string {
	t.Helper()
	data, err := afero.ReadFile(e.fs, name)
	require.NoError(t, err)
	return string(data)
}

func (e *env) changelog(t *testing.T, name string) []string {
	t.Helper()
	content, err := e.log.Show(name)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func (e *env) run(t *testing.T, op Op) *Result {
	t.Helper()
	res, err := e.d.Run(op)
	require.NoError(t, err)
	require.NoError(t, res.LogErr)
	return res
}

func TestSessionScenario(t *testing.T) {
	e := setup(t, nil)

	e.run(t, Create{Name: "notes.txt"})
	e.run(t, Append{Name: "notes.txt", Content: "alpha"})
	e.run(t, Append{Name: "notes.txt", Content: "gamma"})
	e.run(t, InsertLine{Name: "notes.txt", Line: 2, Content: "beta"})
	assert.Equal(t, "alpha\nbeta\ngamma\n", e.read(t, "notes.txt"))

	res := e.run(t, ShowLine{Name: "notes.txt", Line: 2})
	assert.Equal(t, "beta", res.Output)

	e.run(t, DeleteLine{Name: "notes.txt", Line: 1})
	assert.Equal(t, "beta\ngamma\n", e.read(t, "notes.txt"))

	res = e.run(t, CountLines{Name: "notes.txt"})
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Number of lines in 'notes.txt': 2", res.Message)

	assert.Equal(t, []string{
		"[Created file] Number of lines after action: 0",
		"[Appended line] Number of lines after action: 1",
		"[Appended line] Number of lines after action: 2",
		"[Inserted line] Number of lines after action: 3",
		"[Read Line] Number of lines after action: 3",
		"[Deleted line] Number of lines after action: 2",
		"[Read File] Number of lines after action: 2",
	}, e.changelog(t, "notes.txt"))
}

func TestFailedMutationIsNotRecorded(t *testing.T) {
	e := setup(t, nil)
	e.write(t, "a.txt", "x\ny\n")

	_, err := e.d.Run(DeleteLine{Name: "a.txt", Line: 5})
	assert.ErrorIs(t, err, ferrors.ErrLineOutOfRange)
	_, err = e.d.Run(InsertLine{Name: "a.txt", Line: 0, Content: "z"})
	assert.ErrorIs(t, err, ferrors.ErrLineOutOfRange)
	_, err = e.d.Run(Create{Name: "a.txt"})
	assert.ErrorIs(t, err, ferrors.ErrAlreadyExists)

	_, err = e.d.Run(ShowChangelog{Name: "a.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
	assert.Equal(t, "x\ny\n", e.read(t, "a.txt"))
}

func TestReadFile(t *testing.T) {
	e := setup(t, nil)
	e.write(t, "a.txt", "one\ntwo")

	res := e.run(t, ReadFile{Name: "a.txt"})
	assert.Equal(t, "one\ntwo", res.Output)
	assert.Equal(t, []string{"[Read File] Number of lines after action: 1"}, e.changelog(t, "a.txt"))

	_, err := e.d.Run(ReadFile{Name: "missing.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestCopyRecordsDestination(t *testing.T) {
	e := setup(t, nil)
	e.write(t, "src.txt", "a\nb\n")

	e.run(t, Copy{Source: "src.txt", Dest: "dst.txt"})
	assert.Equal(t, "a\nb\n", e.read(t, "dst.txt"))
	assert.Equal(t, []string{"[Created file] Number of lines after action: 2"}, e.changelog(t, "dst.txt"))

	_, err := e.log.Show("src.txt")
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestDeleteRemovesRecord(t *testing.T) {
	e := setup(t, nil)
	e.run(t, Create{Name: "a.txt"})

	res := e.run(t, Delete{Name: "a.txt"})
	assert.Equal(t, "Successfully deleted file 'a.txt'", res.Message)
	exists, _ := afero.Exists(e.records, "a.txt.changelog")
	assert.False(t, exists)

	// A file that never had a record deletes cleanly.
	e.write(t, "b.txt", "")
	e.run(t, Delete{Name: "b.txt"})

	_, err := e.d.Run(Delete{Name: "b.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestResetThenRecord(t *testing.T) {
	e := setup(t, nil)
	e.run(t, Create{Name: "a.txt"})
	e.run(t, Append{Name: "a.txt", Content: "x"})

	e.run(t, ResetChangelog{Name: "a.txt"})
	e.run(t, ShowLine{Name: "a.txt", Line: 1})
	assert.Equal(t, []string{"[Read Line] Number of lines after action: 1"}, e.changelog(t, "a.txt"))

	_, err := e.d.Run(ResetChangelog{Name: "never.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestListDir(t *testing.T) {
	e := setup(t, nil)
	e.write(t, "b.txt", "")
	e.write(t, "a.txt", "")
	e.write(t, ".a.txt.1234.tmp", "")

	res := e.run(t, ListDir{})
	assert.Equal(t, []string{"a.txt", "b.txt"}, res.Entries)
}

func TestLogFailureIsReportedSeparately(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := files.NewStore(fsys, nil)
	log := changelog.NewLog(fsys, afero.NewReadOnlyFs(afero.NewMemMapFs()), "/changelog", nil)
	d := New(store, lines.NewEngine(store), log)

	res, err := d.Run(Create{Name: "a.txt"})
	require.NoError(t, err)
	assert.ErrorIs(t, res.LogErr, ferrors.ErrIO)

	exists, _ := afero.Exists(fsys, "a.txt")
	assert.True(t, exists)
}

func TestImages(t *testing.T) {
	e := setup(t, nil, WithImages())
	e.write(t, "a.txt", "a\nb\n")

	res := e.run(t, InsertLine{Name: "a.txt", Line: 2, Content: "X"})
	assert.Equal(t, "a\nb\n", string(res.Before))
	assert.Equal(t, "a\nX\nb\n", string(res.After))

	res = e.run(t, DeleteLine{Name: "a.txt", Line: 1})
	assert.Equal(t, "a\nX\nb\n", string(res.Before))
	assert.Equal(t, "X\nb\n", string(res.After))
}

func TestRecoverAfterFailedRename(t *testing.T) {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := afero.NewMemMapFs()
	fault := files.NewFaultFs(base)
	fault.RenameErr = func(string, string) error { return errors.New("cross-device link") }

	vault, err := safe.New(afero.NewMemMapFs(), db, safe.Options{})
	require.NoError(t, err)

	store := files.NewStore(fault, nil)
	log := changelog.NewLog(fault, afero.NewMemMapFs(), "/changelog", nil)
	d := New(store, lines.NewEngine(store, lines.WithBackup(vault)), log, WithBackups(vault))
	require.NoError(t, afero.WriteFile(base, "a.txt", []byte("keep\nme\n"), 0644))

	_, err = d.Run(DeleteLine{Name: "a.txt", Line: 1})
	require.ErrorIs(t, err, ferrors.ErrIO)
	var commitErr *lines.CommitError
	require.True(t, errors.As(err, &commitErr))

	_, err = log.Show("a.txt")
	assert.ErrorIs(t, err, ferrors.ErrNotFound, "failed rewrite must not be recorded")

	res, err := d.Run(ListBackups{})
	require.NoError(t, err)
	require.Len(t, res.Backups, 1)
	assert.Equal(t, "a.txt", res.Backups[0].Source)

	res, err = d.Run(Recover{ID: commitErr.BackupID, Dest: "a.restored.txt"})
	require.NoError(t, err)
	require.NoError(t, res.LogErr)

	data, err := afero.ReadFile(base, "a.restored.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep\nme\n", string(data))

	res, err = d.Run(ListBackups{})
	require.NoError(t, err)
	assert.Empty(t, res.Backups)

	_, err = d.Run(Recover{ID: commitErr.BackupID, Dest: "again.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestRecoverWithoutBackups(t *testing.T) {
	e := setup(t, nil)

	_, err := e.d.Run(Recover{ID: "x", Dest: "y.txt"})
	assert.ErrorIs(t, err, ferrors.ErrNotFound)

	res := e.run(t, ListBackups{})
	assert.Empty(t, res.Backups)
}

func TestUnknownOpPanics(t *testing.T) {
	e := setup(t, nil)
	assert.Panics(t, func() { e.d.Run(&Create{Name: "a.txt"}) })
}
