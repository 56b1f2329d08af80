// Package state owns the users, attendance records, message queue and school
// config of the running process. It is the single source of truth: every
// component reads copies from it and mutates only through its methods.
//
// Collections are replaced as whole values under a write lock, so readers
// never observe a half-applied change. Mutations are serialized and each one
// writes the affected snapshots back to the KV store.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"schoolattendance/internal/metrics"
	"schoolattendance/internal/model"
	"schoolattendance/internal/store"
)

// Store keys.
const (
	KeyUsers   = "absensi_users"
	KeyRecords = "absensi_records"
	KeyConfig  = "absensi_config"
	KeyQueue   = "absensi_message_queue"
)

var (
	// ErrPersistenceUnavailable wraps failed snapshot writes. The in-memory
	// change has already been applied when it is returned.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrUserNotFound           = errors.New("user not found")
	ErrUsernameTaken          = errors.New("username already taken")
)

// Defaults are used for every key missing from the store at startup.
type Defaults struct {
	Users  []model.User
	Config model.SchoolConfig
}

type State struct {
	writeMu sync.Mutex // serializes mutations and their snapshot writes

	mu      sync.RWMutex
	users   []model.User
	records []model.AttendanceRecord
	queue   []model.MessageQueueItem
	config  model.SchoolConfig

	kv      store.KV
	metrics *metrics.Metrics
}

// Load reads all four snapshots once. A stored key replaces its default
// wholesale; defaults apply only to missing keys.
func Load(ctx context.Context, kv store.KV, d Defaults, m *metrics.Metrics) (*State, error) {
	s := &State{kv: kv, metrics: m}
	var err error
	if s.users, err = load(ctx, kv, KeyUsers, slices.Clone(d.Users)); err != nil {
		return nil, err
	}
	if s.records, err = load[[]model.AttendanceRecord](ctx, kv, KeyRecords, nil); err != nil {
		return nil, err
	}
	if s.queue, err = load[[]model.MessageQueueItem](ctx, kv, KeyQueue, nil); err != nil {
		return nil, err
	}
	if s.config, err = load(ctx, kv, KeyConfig, d.Config); err != nil {
		return nil, err
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("stored school config: %w", err)
	}
	return s, nil
}

func load[T any](ctx context.Context, kv store.KV, key string, def T) (T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return def, nil
	}
	var v T
	if err != nil {
		return v, fmt.Errorf("%w: read %s: %w", ErrPersistenceUnavailable, key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func (s *State) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users)
}

// Students returns users with the student role in insertion order.
func (s *State) Students() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == model.RoleStudent {
			out = append(out, u)
		}
	}
	return out
}

func (s *State) User(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.users, func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return model.User{}, false
	}
	return s.users[i], true
}

func (s *State) UserByUsername(username string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.users, func(u model.User) bool { return u.Username == username })
	if i < 0 {
		return model.User{}, false
	}
	return s.users[i], true
}

// Records returns every record, newest submission first.
func (s *State) Records() []model.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

func (s *State) Record(id string) (model.AttendanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.records, func(r model.AttendanceRecord) bool { return r.ID == id })
	if i < 0 {
		return model.AttendanceRecord{}, false
	}
	return s.records[i], true
}

// Queue returns the pending notifications, most recent first.
func (s *State) Queue() []model.MessageQueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.queue)
}

func (s *State) QueueItem(id string) (model.MessageQueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.queue, func(m model.MessageQueueItem) bool { return m.ID == id })
	if i < 0 {
		return model.MessageQueueItem{}, false
	}
	return s.queue[i], true
}

func (s *State) Config() model.SchoolConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// AddUser appends a new account. Usernames and ids are unique.
func (s *State) AddUser(ctx context.Context, u model.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || existing.ID == u.ID {
			return ErrUsernameTaken
		}
	}
	users := append(slices.Clone(s.users), u)

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return s.persist(ctx, KeyUsers, users)
}

// UpdateUser replaces the account with the same id.
func (s *State) UpdateUser(ctx context.Context, u model.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	idx := -1
	for i, existing := range s.users {
		if existing.ID == u.ID {
			idx = i
		} else if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	if idx < 0 {
		return ErrUserNotFound
	}
	users := slices.Clone(s.users)
	users[idx] = u

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return s.persist(ctx, KeyUsers, users)
}

// DeleteUser removes the account together with its records and queued
// messages. Deleting an unknown id is a no-op and reports false.
func (s *State) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !slices.ContainsFunc(s.users, func(u model.User) bool { return u.ID == id }) {
		return false, nil
	}
	users := slices.DeleteFunc(slices.Clone(s.users), func(u model.User) bool { return u.ID == id })
	records := slices.DeleteFunc(slices.Clone(s.records), func(r model.AttendanceRecord) bool { return r.StudentID == id })
	queue := slices.DeleteFunc(slices.Clone(s.queue), func(m model.MessageQueueItem) bool { return m.StudentID == id })

	s.mu.Lock()
	s.users, s.records, s.queue = users, records, queue
	s.mu.Unlock()

	return true, errors.Join(
		s.persist(ctx, KeyUsers, users),
		s.persist(ctx, KeyRecords, records),
		s.persist(ctx, KeyQueue, queue),
	)
}

// AddRecord commits a resolved record at the head of the history.
func (s *State) AddRecord(ctx context.Context, rec model.AttendanceRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !slices.ContainsFunc(s.users, func(u model.User) bool { return u.ID == rec.StudentID }) {
		return ErrUserNotFound
	}
	records := append([]model.AttendanceRecord{rec}, s.records...)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return s.persist(ctx, KeyRecords, records)
}

// PrependMessage puts a new draft at the head of the queue. Drafts for
// students that no longer exist are refused.
func (s *State) PrependMessage(ctx context.Context, item model.MessageQueueItem) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !slices.ContainsFunc(s.users, func(u model.User) bool { return u.ID == item.StudentID }) {
		return ErrUserNotFound
	}
	queue := append([]model.MessageQueueItem{item}, s.queue...)

	s.mu.Lock()
	s.queue = queue
	s.mu.Unlock()
	return s.persist(ctx, KeyQueue, queue)
}

// RemoveMessage drops the queue item with id. A missing id is a no-op.
func (s *State) RemoveMessage(ctx context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !slices.ContainsFunc(s.queue, func(m model.MessageQueueItem) bool { return m.ID == id }) {
		return false, nil
	}
	queue := slices.DeleteFunc(slices.Clone(s.queue), func(m model.MessageQueueItem) bool { return m.ID == id })

	s.mu.Lock()
	s.queue = queue
	s.mu.Unlock()
	return true, s.persist(ctx, KeyQueue, queue)
}

// SetConfig replaces the school config after validating it.
func (s *State) SetConfig(ctx context.Context, cfg model.SchoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return s.persist(ctx, KeyConfig, cfg)
}

func (s *State) persist(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		s.metrics.PersistFailed(key)
		return fmt.Errorf("%w: write %s: %w", ErrPersistenceUnavailable, key, err)
	}
	return nil
}
