// Package session persists the binding from external conversation ids to
// upstream Claude session ids, so multi-turn clients keep CLI context.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFileName is the session file under the user's home directory.
const DefaultFileName = ".claude-code-cli-sessions.json"

// TTL bounds a mapping's lifetime since last use.
const TTL = 24 * time.Hour

// CleanupInterval is the period of the expiry sweep.
const CleanupInterval = time.Hour

// Mapping binds one external conversation id to an upstream session.
// Timestamps are milliseconds since epoch, matching the on-disk format.
type Mapping struct {
	// ClawdbotID is the external conversation id.
	ClawdbotID string `json:"clawdbotId"`
	// ClaudeSessionID is the upstream session id passed to --session-id.
	ClaudeSessionID string `json:"claudeSessionId"`
	// CreatedAt is the mapping creation time.
	CreatedAt int64 `json:"createdAt"`
	// LastUsedAt is the most recent use time.
	LastUsedAt int64 `json:"lastUsedAt"`
	// Model is the last-known model alias for the conversation.
	Model string `json:"model"`
}

// Store manages session mappings backed by a single JSON file. The file is
// loaded on first use and rewritten in full on every modification; writes
// are fire-and-forget (logged, never fatal). All mutation goes through one
// mutex so request handlers and the cleanup timer never race.
type Store struct {
	// path is the session file location.
	path string
	// logger records non-fatal persistence failures.
	logger *zap.Logger
	// now is the clock, replaceable in tests.
	now func() time.Time

	// mu guards entries and loaded.
	mu sync.Mutex
	// loaded reports whether the file has been read.
	loaded bool
	// entries is the in-memory mapping keyed by conversation id.
	entries map[string]Mapping

	// stop terminates the cleanup loop.
	stop chan struct{}
	// stopOnce guards Stop.
	stopOnce sync.Once
}

// NewStore constructs a Store at the given path, defaulting to the session
// file in the user's home directory.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, DefaultFileName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:    path,
		logger:  logger,
		now:     time.Now,
		entries: map[string]Mapping{},
		stop:    make(chan struct{}),
	}, nil
}

// GetOrCreate returns the mapping for a conversation id, minting a fresh
// upstream session id on first sight. Repeated calls return the same
// upstream id and bump lastUsedAt monotonically.
func (s *Store) GetOrCreate(conversationID string, model string) Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	nowMS := s.now().UnixMilli()
	entry, ok := s.entries[conversationID]
	if !ok {
		entry = Mapping{
			ClawdbotID:      conversationID,
			ClaudeSessionID: uuid.NewString(),
			CreatedAt:       nowMS,
		}
	}
	if nowMS > entry.LastUsedAt {
		entry.LastUsedAt = nowMS
	}
	if model != "" {
		entry.Model = model
	}
	s.entries[conversationID] = entry
	s.save()
	return entry
}

// Get returns the mapping for a conversation id, if present.
func (s *Store) Get(conversationID string) (Mapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	entry, ok := s.entries[conversationID]
	return entry, ok
}

// Delete removes a conversation's mapping.
func (s *Store) Delete(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	if _, ok := s.entries[conversationID]; !ok {
		return
	}
	delete(s.entries, conversationID)
	s.save()
}

// Cleanup drops every mapping idle for longer than the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	cutoff := s.now().Add(-TTL).UnixMilli()
	removed := 0
	for key, entry := range s.entries {
		if entry.LastUsedAt < cutoff {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("expired session mappings", zap.Int("removed", removed))
		s.save()
	}
}

// StartCleanup runs the expiry sweep on the given interval until Stop.
func (s *Store) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = CleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// ensureLoaded reads the session file once. An absent or malformed file
// yields an empty store; load failure is never fatal.
func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read session file", zap.Error(err))
		}
		return
	}

	var entries map[string]Mapping
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("parse session file, starting empty", zap.Error(err))
		return
	}
	s.entries = entries
	if s.entries == nil {
		s.entries = map[string]Mapping{}
	}
}

// save rewrites the whole session file. Callers hold the mutex; failures
// are logged and swallowed.
func (s *Store) save() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.logger.Warn("marshal session file", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("write session file", zap.Error(err))
	}
}
