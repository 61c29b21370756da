package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
)

type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository builds an in-process session store. Idle sessions
// expire after ttl; expired entries are purged every purgeInterval.
func NewSessionRepository(ttl, purgeInterval time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	if purgeInterval <= 0 {
		purgeInterval = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, purgeInterval),
	}
}

// Save stores a deep copy, so later mutation of the caller's session does
// not bleed into the cache.
func (r *SessionRepository) Save(_ context.Context, session *entity.BuildSession) error {
	r.cache.Set(session.Id.String(), session.Clone(), cache.DefaultExpiration)
	return nil
}

// FindById hands each caller its own deep copy. Readers keep session
// pointers across slow LLM calls; they must never alias the copy another
// request is mutating under the session lock.
func (r *SessionRepository) FindById(_ context.Context, id uuid.UUID) (*entity.BuildSession, error) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*entity.BuildSession).Clone(), nil
	}
	return nil, contract.ErrSessionNotFound
}

func (r *SessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.cache.Delete(id.String())
	return nil
}
