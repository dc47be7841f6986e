package cache

import (
	"strconv"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/patrickmn/go-cache"
)

// UserCache keeps recently authenticated users for a short TTL so every
// authenticated request does not hit the database.
type UserCache struct {
	cache *cache.Cache
}

func NewUserCache(ttl time.Duration) *UserCache {
	return &UserCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

// Get returns a copy, so callers may modify the user freely.
func (u *UserCache) Get(id int64) (*entity.User, bool) {
	if x, found := u.cache.Get(key(id)); found {
		user := *x.(*entity.User)
		return &user, true
	}
	return nil, false
}

func (u *UserCache) Set(user *entity.User) {
	cached := *user
	u.cache.Set(key(user.ID), &cached, cache.DefaultExpiration)
}

// Invalidate drops the user after a profile change.
func (u *UserCache) Invalidate(id int64) {
	u.cache.Delete(key(id))
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}
