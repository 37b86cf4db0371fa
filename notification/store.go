package notification

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultCap = 5

// Store keeps the most recent notifications of every user, newest first.
// Each user has its own shard and lock; different users never contend.
type Store struct {
	cap    int
	shards sync.Map // user id -> *shard
	seen   *cache.Cache
	now    func() time.Time
	logger *zap.Logger
}

type shard struct {
	mu    sync.Mutex
	items []Notification
}

type Option func(*Store)

// WithClock overrides time.Now, used for read_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store holding at most capacity notifications per user. Keys
// evicted by the cap are remembered for dedupWindow so redeliveries stay no-ops.
func NewStore(capacity int, dedupWindow time.Duration, logger *zap.Logger, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if dedupWindow <= 0 {
		dedupWindow = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		cap:    capacity,
		seen:   cache.New(dedupWindow, 2*dedupWindow),
		now:    time.Now,
		logger: logger.With(zap.String("component", "notification_store")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Cap() int {
	return s.cap
}

// Ingest inserts n at the head of its user's list. It returns false when n is a
// duplicate or invalid; the store is left unchanged in that case.
func (s *Store) Ingest(n Notification) bool {
	if err := n.Validate(); err != nil {
		s.logger.Warn("rejected notification", zap.Error(err))
		return false
	}

	sh := s.shard(n.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return s.insertLocked(sh, n)
}

// MergeSnapshot folds a server snapshot into the user's list. Snapshot items are
// placed by CreatedAt, newest at the head; items older than the tail of a full
// list are skipped. Read flags only move from unread to read.
func (s *Store) MergeSnapshot(userID int64, snapshot []Notification) bool {
	ordered := make([]Notification, 0, len(snapshot))
	for _, n := range snapshot {
		if n.UserID != userID {
			continue
		}
		if err := n.Validate(); err != nil {
			s.logger.Warn("skipped snapshot notification", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		ordered = append(ordered, n)
	}

	slices.SortStableFunc(ordered, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	changed := false
	now := s.now()

	for _, n := range ordered {
		if i := indexOf(sh.items, n.DedupKey()); i >= 0 {
			if n.Read && sh.items[i].markRead(now) {
				changed = true
			}
			continue
		}

		if s.placeLocked(sh, n) {
			changed = true
		}
	}

	return changed
}

// ListRecent returns up to limit notifications, newest first.
func (s *Store) ListRecent(userID int64, limit int) []Notification {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if limit > len(sh.items) {
		limit = len(sh.items)
	}

	return slices.Clone(sh.items[:limit])
}

// MarkAllRead marks every notification held at call time as read and returns how
// many changed.
func (s *Store) MarkAllRead(userID int64) int {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	marked := 0

	for i := range sh.items {
		if sh.items[i].markRead(now) {
			marked++
		}
	}

	return marked
}

// MarkRead marks one notification, matched by server id or dedup key.
func (s *Store) MarkRead(userID int64, id string) bool {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for i := range sh.items {
		if sh.items[i].ID == id || sh.items[i].DedupKey() == id {
			return sh.items[i].markRead(s.now())
		}
	}

	return false
}

func (s *Store) UnreadCount(userID int64) int {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return unread(sh.items)
}

// Snapshot returns the unread count and the full list under one lock.
func (s *Store) Snapshot(userID int64) (int, []Notification) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return unread(sh.items), slices.Clone(sh.items)
}

func (s *Store) shard(userID int64) *shard {
	if sh, ok := s.shards.Load(userID); ok {
		return sh.(*shard)
	}
	sh, _ := s.shards.LoadOrStore(userID, &shard{})
	return sh.(*shard)
}

func (s *Store) insertLocked(sh *shard, n Notification) bool {
	if !s.acceptLocked(sh, &n) {
		return false
	}

	sh.items = slices.Insert(sh.items, 0, n)
	s.evictLocked(sh)

	return true
}

// placeLocked inserts n after every held notification created at or after it.
func (s *Store) placeLocked(sh *shard, n Notification) bool {
	if !s.acceptLocked(sh, &n) {
		return false
	}

	at := slices.IndexFunc(sh.items, func(held Notification) bool {
		return held.CreatedAt.Before(n.CreatedAt)
	})
	if at < 0 {
		if len(sh.items) >= s.cap {
			return false
		}
		at = len(sh.items)
	}

	sh.items = slices.Insert(sh.items, at, n)
	s.evictLocked(sh)

	return true
}

// acceptLocked rejects duplicates and stamps missing timestamps.
func (s *Store) acceptLocked(sh *shard, n *Notification) bool {
	key := n.DedupKey()

	if indexOf(sh.items, key) >= 0 {
		return false
	}

	if _, evicted := s.seen.Get(seenKey(n.UserID, key)); evicted {
		return false
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.Read && n.ReadAt == nil {
		at := s.now()
		n.ReadAt = &at
	}

	return true
}

// evictLocked drops the tail past the cap and remembers the evicted keys.
func (s *Store) evictLocked(sh *shard) {
	for len(sh.items) > s.cap {
		last := sh.items[len(sh.items)-1]
		s.seen.Set(seenKey(last.UserID, last.DedupKey()), struct{}{}, cache.DefaultExpiration)
		sh.items = sh.items[:len(sh.items)-1]
	}
}

func indexOf(items []Notification, key string) int {
	return slices.IndexFunc(items, func(n Notification) bool {
		return n.DedupKey() == key
	})
}

func unread(items []Notification) int {
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count
}

func seenKey(userID int64, key string) string {
	return strconv.FormatInt(userID, 10) + "|" + key
}
