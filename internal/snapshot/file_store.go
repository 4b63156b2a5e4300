package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/models"
)

// FileStore keeps one file per snapshot in a single directory
type FileStore struct {
	dir    string
	logger *logrus.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on first append.
func NewFileStore(dir string, logger *logrus.Logger) *FileStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &FileStore{dir: dir, logger: logger}
}

// List returns all snapshot files sorted oldest first
func (s *FileStore) List(ctx context.Context) ([]Ref, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("dir", s.dir).Info("Snapshot directory not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshot directory: %w", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsSnapshotKey(entry.Name()) {
			continue
		}
		refs = append(refs, Ref{Key: entry.Name()})
	}
	sortRefs(refs)
	return refs, nil
}

// Load reads and decodes one snapshot file
func (s *FileStore) Load(ctx context.Context, ref Ref) (models.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ref.Key))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %w", models.ErrCorruptSnapshot, ref.Key, err)
	}
	return Decode(ref.Key, data)
}

// Append writes the snapshot to a temp file and renames it into place.
// An existing key is never overwritten.
func (s *FileStore) Append(ctx context.Context, snap models.Snapshot) (Ref, error) {
	ref := Ref{Key: KeyFor(snap.Timestamp)}

	data, err := Encode(snap)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("%w: create %s: %w", models.ErrStorageWrite, s.dir, err)
	}

	target := filepath.Join(s.dir, ref.Key)
	if _, err := os.Stat(target); err == nil {
		return Ref{}, fmt.Errorf("%w: %s already exists", models.ErrStorageWrite, ref.Key)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Ref{}, fmt.Errorf("%w: write %s: %w", models.ErrStorageWrite, ref.Key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Ref{}, fmt.Errorf("%w: sync %s: %w", models.ErrStorageWrite, ref.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return Ref{}, fmt.Errorf("%w: close %s: %w", models.ErrStorageWrite, ref.Key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return Ref{}, fmt.Errorf("%w: rename %s: %w", models.ErrStorageWrite, ref.Key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":     ref.Key,
		"runners": len(snap.Runners),
	}).Debug("Odds snapshot saved")
	return ref, nil
}

// Ping succeeds when the directory exists or can be created later
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot path %s is not a directory", s.dir)
	}
	return nil
}
