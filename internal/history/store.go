// Package history keeps the bounded, persisted log of finished sessions
package history

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/storage"
)

// DefaultKey is the slot key the history list is persisted under
const DefaultKey = "ai-translate-history"

// DefaultLimit is the maximum number of kept items
const DefaultLimit = 10

const slotTimeout = 10 * time.Second

// Observer receives the full list after every change
type Observer func(items []models.HistoryItem)

// Options configures a Store
type Options struct {
	Key   string
	Limit int
	Clock clock.Clock
	Log   *zap.SugaredLogger
}

// Store is the history log. Every mutation reads the persisted list,
// applies the change and writes the whole list back under one lock.
// Storage faults are logged and absorbed; the in-memory copy then
// stays authoritative for the process.
type Store struct {
	mu        sync.Mutex
	slot      storage.Provider
	key       string
	limit     int
	clock     clock.Clock
	log       *zap.SugaredLogger
	items     []models.HistoryItem
	lastID    int64
	observers map[int]Observer
	nextObs   int
	notifyMu  sync.Mutex
}

// NewStore creates a store over slot. A nil slot keeps history in memory only.
func NewStore(slot storage.Provider, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}

	s := &Store{
		slot:      slot,
		key:       opts.Key,
		limit:     opts.Limit,
		clock:     opts.Clock,
		log:       opts.Log,
		observers: make(map[int]Observer),
	}

	s.mu.Lock()
	s.items = s.load()
	s.mu.Unlock()
	return s
}

// load must be called with s.mu held
func (s *Store) load() []models.HistoryItem {
	if s.slot == nil {
		return cloneItems(s.items)
	}

	ctx, cancel := context.WithTimeout(context.Background(), slotTimeout)
	defer cancel()

	data, err := s.slot.Load(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warnw("failed to load history, using in-memory copy", "key", s.key, "error", err)
		return cloneItems(s.items)
	}

	var items []models.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warnw("history record is corrupt, using in-memory copy", "key", s.key, "error", err)
		return cloneItems(s.items)
	}
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	return items
}

// persist must be called with s.mu held
func (s *Store) persist(items []models.HistoryItem) {
	s.items = items
	if s.slot == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), slotTimeout)
	defer cancel()

	if len(items) == 0 {
		if err := s.slot.Delete(ctx, s.key); err != nil {
			s.log.Warnw("failed to delete history record", "key", s.key, "error", err)
		}
		return
	}

	data, err := json.Marshal(items)
	if err != nil {
		s.log.Errorw("failed to encode history", "error", err)
		return
	}
	if err := s.slot.Save(ctx, s.key, data); err != nil {
		s.log.Warnw("failed to persist history", "key", s.key, "error", err)
	}
}

// Record prepends item, keeps the most recent items up to the limit,
// persists and notifies observers. A missing id or timestamp is assigned.
// It returns the stored item.
func (s *Store) Record(item models.HistoryItem) models.HistoryItem {
	s.mu.Lock()

	now := s.clock.Now()
	if item.Timestamp.IsZero() {
		item.Timestamp = now
	}
	if item.ID == "" {
		item.ID = s.nextID(now)
	}
	item.TargetLanguages = append([]string(nil), item.TargetLanguages...)

	items := append([]models.HistoryItem{item}, s.load()...)
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.persist(items)
	s.mu.Unlock()

	s.log.Infow("recorded history item", "id", item.ID, "filename", item.Filename, "fileType", item.FileType)
	s.broadcast()
	return item
}

// nextID returns a millisecond timestamp id that is strictly greater than the last one
func (s *Store) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// List returns the items, most recent first
func (s *Store) List() []models.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.load()
	return cloneItems(s.items)
}

// Remove deletes the item with id. It reports whether an item was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()

	current := s.load()
	items := make([]models.HistoryItem, 0, len(current))
	for _, it := range current {
		if it.ID != id {
			items = append(items, it)
		}
	}
	removed := len(items) != len(current)
	if !removed {
		s.items = current
		s.mu.Unlock()
		return false
	}

	s.persist(items)
	s.mu.Unlock()

	s.broadcast()
	return true
}

// Clear empties the history and deletes the persisted record
func (s *Store) Clear() {
	s.mu.Lock()
	s.persist(nil)
	s.mu.Unlock()

	s.log.Info("cleared history")
	s.broadcast()
}

// Subscribe registers an observer. The returned function unregisters it.
// Observers run one at a time with the latest list and must not mutate the store.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// observerList must be called with s.mu held
func (s *Store) observerList() []Observer {
	list := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		list = append(list, o)
	}
	return list
}

func (s *Store) broadcast() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	items := cloneItems(s.items)
	observers := s.observerList()
	s.mu.Unlock()

	for _, o := range observers {
		o(cloneItems(items))
	}
}

func cloneItems(items []models.HistoryItem) []models.HistoryItem {
	if items == nil {
		return nil
	}
	out := make([]models.HistoryItem, len(items))
	for i, it := range items {
		it.TargetLanguages = append([]string(nil), it.TargetLanguages...)
		out[i] = it
	}
	return out
}
