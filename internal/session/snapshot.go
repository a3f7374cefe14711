package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"commandbook/internal/host"
)

const snapshotVersion = 1

type snapshotFile struct {
	Version  int               `json:"version"`
	SavedAt  time.Time         `json:"saved_at"`
	Sessions []sessionSnapshot `json:"sessions"`
}

type sessionSnapshot struct {
	Owner     uuid.UUID               `json:"owner"`
	History   []locationSnapshot      `json:"history,omitempty"`
	Bringable map[uuid.UUID]time.Time `json:"bringable,omitempty"`
	Requests  map[uuid.UUID]time.Time `json:"requests,omitempty"`
	GoneAt    time.Time               `json:"gone_at"`
}

type locationSnapshot struct {
	World string     `json:"world"`
	Pos   [3]float64 `json:"pos"`
	Pitch float64    `json:"pitch"`
	Yaw   float64    `json:"yaw"`
}

func toSnapshot(loc host.Location) locationSnapshot {
	return locationSnapshot{World: loc.World, Pos: [3]float64(loc.Pos), Pitch: loc.Pitch, Yaw: loc.Yaw}
}

func (l locationSnapshot) location() host.Location {
	return host.Location{World: l.World, Pos: mgl64.Vec3(l.Pos), Pitch: l.Pitch, Yaw: l.Yaw}
}

// Save writes every session to a zstd compressed JSON file. Players still
// online are saved as if they had just disconnected.
func (s *Store) Save(path string) error {
	now := s.clock()
	file := snapshotFile{Version: snapshotVersion, SavedAt: now}

	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		snap := sessionSnapshot{
			Owner:     id,
			Bringable: copyTimes(sess.bringable),
			Requests:  copyTimes(sess.requests),
			GoneAt:    sess.goneAt,
		}
		if snap.GoneAt.IsZero() {
			snap.GoneAt = now
		}
		for _, loc := range sess.history {
			snap.History = append(snap.History, toSnapshot(loc))
		}
		sess.mu.Unlock()
		file.Sessions = append(file.Sessions, snap)
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open session snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}
	bw := bufio.NewWriter(enc)
	if err := json.NewEncoder(bw).Encode(&file); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("flush sessions: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close zstd writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close session snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session snapshot: %w", err)
	}
	return nil
}

// Load restores sessions from a snapshot written by Save. A missing file is
// not an error. Sessions that are already past their max age are skipped.
func (s *Store) Load(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open session snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var file snapshotFile
	if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&file); err != nil {
		return 0, fmt.Errorf("decode sessions: %w", err)
	}
	if file.Version != snapshotVersion {
		return 0, fmt.Errorf("unsupported session snapshot version %d", file.Version)
	}

	loaded := 0
	for _, snap := range file.Sessions {
		sess := s.Session(snap.Owner)
		sess.mu.Lock()
		sess.goneAt = snap.GoneAt
		sess.history = sess.history[:0]
		for _, loc := range snap.History {
			if len(sess.history) >= s.settings.HistorySize {
				break
			}
			sess.history = append(sess.history, loc.location())
		}
		for id, at := range snap.Bringable {
			sess.bringable[id] = at
		}
		for id, at := range snap.Requests {
			sess.requests[id] = at
		}
		sess.mu.Unlock()
		if !sess.IsRecent() {
			s.mu.Lock()
			delete(s.sessions, snap.Owner)
			s.mu.Unlock()
			continue
		}
		loaded++
	}
	return loaded, nil
}

func copyTimes(in map[uuid.UUID]time.Time) map[uuid.UUID]time.Time {
	if len(in) == 0 {
		return nil
	}
	out := make(map[uuid.UUID]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
