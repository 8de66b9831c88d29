// Package store persists per-guild music queues to a single JSON file.
//
// The file is read fully and rewritten fully on every mutation. All
// read-modify-write cycles go through one mutex: since every write replaces
// the whole file, a per-guild lock would still lose updates across guilds.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type QueueStore struct {
	path string
	mu   sync.Mutex
}

// Open prepares the queue file at path, creating parent directories and an
// empty "{}" document when it does not exist yet.
func Open(path string) (*QueueStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("queue dir: %w", err)
		}
	}
	s := &QueueStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.save(Snapshot{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat queue file: %w", err)
	}
	return s, nil
}

func (s *QueueStore) Path() string { return s.path }

// Load returns the full snapshot of every guild's state.
func (s *QueueStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the whole file with snap.
func (s *QueueStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(snap)
}

// GetOrCreate ensures guildID has an entry, persisting immediately when it was
// missing, and returns the snapshot it was read from together with the entry.
func (s *QueueStore) GetOrCreate(guildID string) (Snapshot, *GuildMusic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(guildID)
}

// Update runs fn on guildID's entry inside the store's critical section and
// persists the result. If fn returns an error nothing is written.
func (s *QueueStore) Update(guildID string, fn func(gm *GuildMusic) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, gm, err := s.getOrCreate(guildID)
	if err != nil {
		return err
	}
	if err := fn(gm); err != nil {
		return err
	}
	if gm.Queue == nil {
		gm.Queue = []Track{}
	}
	return s.save(snap)
}

// Append adds tracks to the tail of guildID's queue and returns the new length.
func (s *QueueStore) Append(guildID string, tracks ...Track) (int, error) {
	n := 0
	err := s.Update(guildID, func(gm *GuildMusic) error {
		gm.Queue = append(gm.Queue, tracks...)
		n = len(gm.Queue)
		return nil
	})
	return n, err
}

var errEmpty = errors.New("empty queue")

// Pop removes and returns the head of guildID's queue. ok is false when the
// queue was empty; in that case the file is left untouched.
func (s *QueueStore) Pop(guildID string) (t Track, ok bool, err error) {
	err = s.Update(guildID, func(gm *GuildMusic) error {
		if len(gm.Queue) == 0 {
			return errEmpty
		}
		t = gm.Queue[0]
		gm.Queue = gm.Queue[1:]
		ok = true
		return nil
	})
	if errors.Is(err, errEmpty) {
		return Track{}, false, nil
	}
	return t, ok, err
}

func (s *QueueStore) Clear(guildID string) error {
	return s.Update(guildID, func(gm *GuildMusic) error {
		gm.Queue = []Track{}
		return nil
	})
}

// Queue returns a copy of guildID's queue.
func (s *QueueStore) Queue(guildID string) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, gm, err := s.getOrCreate(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]Track, len(gm.Queue))
	copy(out, gm.Queue)
	return out, nil
}

func (s *QueueStore) Len(guildID string) (int, error) {
	q, err := s.Queue(guildID)
	return len(q), err
}

func (s *QueueStore) getOrCreate(guildID string) (Snapshot, *GuildMusic, error) {
	snap, err := s.load()
	if err != nil {
		return nil, nil, err
	}
	gm, ok := snap[guildID]
	if ok && gm != nil {
		if gm.RepeatMode == "" {
			gm.RepeatMode = RepeatOff
		}
		return snap, gm, nil
	}
	gm = newGuildMusic()
	snap[guildID] = gm
	if err := s.save(snap); err != nil {
		return nil, nil, err
	}
	return snap, gm, nil
}

func (s *QueueStore) load() (Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	snap := Snapshot{}
	if len(raw) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", s.path, err)
	}
	return snap, nil
}

func (s *QueueStore) save(snap Snapshot) error {
	if snap == nil {
		snap = Snapshot{}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".music-*.json")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Chmod(0o644)
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close queue file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
