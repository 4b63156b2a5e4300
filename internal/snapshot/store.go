// Package snapshot provides append-only storage for odds snapshots.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/odds-tracker/internal/models"
)

const (
	// KeyPrefix and KeySuffix bracket every snapshot key
	KeyPrefix = "odds_"
	KeySuffix = ".snapshot"

	// keyLayout is fixed width and zero padded so lexical order is chronological order
	keyLayout = "20060102_150405"
)

// Ref addresses one stored snapshot
type Ref struct {
	Key string
}

// Timestamp parses the capture time encoded in the key
func (r Ref) Timestamp() (time.Time, error) {
	return ParseKey(r.Key)
}

// Store is an append-only ledger of snapshots
type Store interface {
	// List returns every snapshot in chronological order. A missing location yields no refs.
	List(ctx context.Context) ([]Ref, error)

	// Load decodes one snapshot. Undecodable content fails with models.ErrCorruptSnapshot.
	Load(ctx context.Context, ref Ref) (models.Snapshot, error)

	// Append persists a snapshot under a key derived from its timestamp.
	// Failures wrap models.ErrStorageWrite.
	Append(ctx context.Context, snap models.Snapshot) (Ref, error)

	// Ping checks that the backing storage is reachable
	Ping(ctx context.Context) error
}

// KeyFor returns the storage key for a capture time
func KeyFor(ts time.Time) string {
	return KeyPrefix + ts.UTC().Format(keyLayout) + KeySuffix
}

// IsSnapshotKey reports whether name looks like a snapshot key
func IsSnapshotKey(name string) bool {
	return strings.HasPrefix(name, KeyPrefix) && strings.HasSuffix(name, KeySuffix)
}

// ParseKey extracts the UTC capture time from a snapshot key
func ParseKey(key string) (time.Time, error) {
	if !IsSnapshotKey(key) {
		return time.Time{}, fmt.Errorf("%w: %s", models.ErrInvalidSnapshotKey, key)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefix), KeySuffix)
	ts, err := time.ParseInLocation(keyLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", models.ErrInvalidSnapshotKey, key, err)
	}
	return ts, nil
}

// sortRefs orders refs by key, which is chronological for well-formed keys
func sortRefs(refs []Ref) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Key < refs[j].Key
	})
}

// Encode serializes a snapshot for storage
func Encode(snap models.Snapshot) ([]byte, error) {
	if snap.Runners == nil {
		snap.Runners = models.RunnerMap{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses stored content. A missing timestamp is recovered from the key.
func Decode(key string, data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", models.ErrCorruptSnapshot, key, err)
	}
	if snap.Runners == nil {
		snap.Runners = models.RunnerMap{}
	}
	if snap.Timestamp.IsZero() {
		if ts, err := ParseKey(key); err == nil {
			snap.Timestamp = ts
		}
	}
	return snap, nil
}
