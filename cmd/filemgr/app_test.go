package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filemgr/internal/changelog"
	"filemgr/internal/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineSink delivers each write as one string.
type lineSink chan string

func (s lineSink) Write(p []byte) (int, error) {
	s <- string(p)
	return len(p), nil
}

func TestFollowLeavesBackupDatabaseFree(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("a\n"), 0644))

	follower, err := openApp(appOptions{configPath: cfgPath, workDir: dir, noSafe: true})
	require.NoError(t, err)
	defer follower.close()
	assert.Nil(t, follower.db)

	sink := make(lineSink, 16)
	follower.printer = newPrinter(sink, io.Discard, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- follower.follow(ctx, "notes.txt") }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// A second command on the same directory opens the backup safe while
	// the follow is still running.
	writer, err := openApp(appOptions{configPath: cfgPath, workDir: dir})
	require.NoError(t, err)
	require.NotNil(t, writer.db)
	writer.printer = newPrinter(io.Discard, io.Discard, 2)

	require.NoError(t, writer.run(dispatch.Append{Name: "notes.txt", Content: "b"}))
	require.NoError(t, writer.run(dispatch.InsertLine{Name: "notes.txt", Line: 1, Content: "z"}))
	writer.close()

	want := []string{
		changelog.FormatEntry(changelog.AppendLine, 2) + "\n",
		changelog.FormatEntry(changelog.InsertLine, 3) + "\n",
	}
	for _, w := range want {
		select {
		case line := <-sink:
			assert.Equal(t, w, line)
		case <-time.After(5 * time.Second):
			t.Fatalf("entry %q not delivered", w)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop")
	}
}

func TestOpenAppHonoursDisabledBackups(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"backup": {"enabled": false}}`), 0644))

	a, err := openApp(appOptions{configPath: cfgPath, workDir: dir})
	require.NoError(t, err)
	defer a.close()
	assert.Nil(t, a.db)

	info, err := os.Stat(filepath.Join(dir, changelog.DefaultDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
