package changelog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Follow calls fn with each complete audit line of name's record, first the
// lines already present and then every line appended while ctx is live.
// A record that is reset is followed again from its start once recreated.
func (l *Log) Follow(ctx context.Context, name string, fn func(line string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating record watcher: %w", err)
	}
	defer watcher.Close()

	// The record may not exist yet, so watch its directory.
	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}

	t := &tail{log: l, record: RecordName(name), fn: fn}
	if err := t.drain(); err != nil {
		return err
	}

	target := filepath.Clean(l.Path(name))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				t.reset()
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := t.drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("record watcher error", zap.String("file", name), zap.Error(err))
		}
	}
}

// tail tracks how much of a record has been delivered.
type tail struct {
	log     *Log
	record  string
	offset  int64
	partial []byte
	fn      func(string)
}

func (t *tail) reset() {
	t.offset = 0
	t.partial = nil
}

func (t *tail) drain() error {
	f, err := t.log.records.Open(t.record)
	if os.IsNotExist(err) {
		t.reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening record: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat record: %w", err)
	}
	if info.Size() < t.offset {
		t.reset()
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking record: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		t.fn(string(buf[:i]))
		buf = buf[i+1:]
	}
	t.partial = append([]byte(nil), buf...)
	return nil
}
