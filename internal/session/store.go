package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"chronobooth/internal/capture"
	"chronobooth/internal/domain"
)

// Store keeps sessions in memory with a sliding TTL. Evicted sessions release
// their camera and cancel outstanding work.
type Store struct {
	cache         *cache.Cache
	ttl           time.Duration
	cameraTimeout time.Duration
	now           func() time.Time
}

func NewStore(ttl, cameraTimeout time.Duration) *Store {
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.close()
		}
	})
	return &Store{cache: c, ttl: ttl, cameraTimeout: cameraTimeout, now: time.Now}
}

func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), capture.NewFeedDevice(st.cameraTimeout), st.now())
	st.cache.Set(s.ID, s, cache.DefaultExpiration)
	return s
}

// Get returns the session and extends its lifetime.
func (st *Store) Get(id string) (*Session, error) {
	v, found := st.cache.Get(id)
	if !found {
		return nil, domain.ErrNotFound
	}
	s := v.(*Session)
	st.cache.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

func (st *Store) Delete(id string) error {
	if _, found := st.cache.Get(id); !found {
		return domain.ErrNotFound
	}
	st.cache.Delete(id)
	return nil
}

func (st *Store) Len() int {
	return st.cache.ItemCount()
}
