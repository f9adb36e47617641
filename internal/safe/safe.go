// internal/safe/safe.go
package safe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"filemgr/internal/logging"
	"filemgr/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrCorrupt        = errors.New("backup content does not match its hash")
)

const metaPrefix = "backup"

// Entry describes one preserved pre-image.
type Entry struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e Entry) GetID() string { return e.ID }

// Safe holds copies of files that are about to be replaced. Content lives in
// files under the safe's filesystem, metadata in badger.
type Safe struct {
	fs         afero.Fs
	meta       *storage.BadgerStore[Entry]
	cache      *lru.Cache[string, []byte]
	compressor *compressor
	logger     *zap.Logger
	mu         sync.Mutex
}

// Options configures Safe behavior
type Options struct {
	CacheSize   int
	Compression CompressionOptions
	Logger      *zap.Logger
}

// New creates a Safe storing content in fsys and metadata in db.
func New(fsys afero.Fs, db *badger.DB, opts Options) (*Safe, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.Compression.Level == 0 {
		opts.Compression = DefaultCompressionOptions()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	comp, err := newCompressor(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Safe{
		fs:         fsys,
		meta:       storage.NewBadgerStore[Entry](db, metaPrefix),
		cache:      cache,
		compressor: comp,
		logger:     logging.OrNop(opts.Logger),
	}, nil
}

// Store preserves content taken from source and returns the backup ID.
func (s *Safe) Store(source string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		ID:        uuid.NewString(),
		Source:    source,
		Hash:      hashContent(content),
		Size:      int64(len(content)),
		CreatedAt: time.Now().UTC(),
	}

	data, compressed := s.compressor.compress(content)
	entry.Compressed = compressed

	path := contentPath(entry.ID)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating content directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0600); err != nil {
		return "", fmt.Errorf("writing content file: %w", err)
	}

	if err := s.meta.Create(entry); err != nil {
		s.fs.Remove(path)
		return "", fmt.Errorf("storing metadata: %w", err)
	}

	s.cache.Add(entry.ID, content)
	s.logger.Debug("stored backup",
		zap.String("backup", entry.ID),
		zap.String("source", source),
		zap.Int64("size", entry.Size),
		zap.Bool("compressed", compressed))
	return entry.ID, nil
}

// Get returns a backup's metadata and original content.
func (s *Safe) Get(id string) (Entry, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(id)
	if err != nil {
		return Entry{}, nil, err
	}

	if content, ok := s.cache.Get(id); ok {
		return entry, content, nil
	}

	data, err := afero.ReadFile(s.fs, contentPath(id))
	if os.IsNotExist(err) {
		return Entry{}, nil, fmt.Errorf("%w: %s: content missing", ErrBackupNotFound, id)
	}
	if err != nil {
		return Entry{}, nil, fmt.Errorf("reading content: %w", err)
	}

	if entry.Compressed {
		data, err = s.compressor.decompress(data)
		if err != nil {
			return Entry{}, nil, fmt.Errorf("decompressing content: %w", err)
		}
	}
	if hashContent(data) != entry.Hash {
		return Entry{}, nil, fmt.Errorf("%w: %s", ErrCorrupt, id)
	}

	s.cache.Add(id, data)
	return entry, data, nil
}

// Release discards a backup once it is no longer needed.
func (s *Safe) Release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.entry(id); err != nil {
		return err
	}
	if err := s.fs.Remove(contentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing content file: %w", err)
	}
	if err := s.meta.Delete(id); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	s.cache.Remove(id)

	s.logger.Debug("released backup", zap.String("backup", id))
	return nil
}

// List returns every backup still held, oldest first.
func (s *Safe) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.meta.List()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Safe) entry(id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, fmt.Errorf("%w: %q is not a backup ID", ErrBackupNotFound, id)
	}
	entry, err := s.meta.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return entry, err
}

func hashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func contentPath(id string) string {
	return filepath.Join("objects", id[:2], id)
}
