package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedRepo caches FindByID results in Redis in front of another
// Repository. Cache failures are logged and never fail the call.
type CachedRepo struct {
	Repository
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCachedRepo(next Repository, rdb redis.Cmdable, ttl time.Duration) *CachedRepo {
	return &CachedRepo{Repository: next, rdb: rdb, ttl: ttl}
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:id:%d", id)
}

func (r *CachedRepo) FindByID(ctx context.Context, id int64) (Book, error) {
	key := bookKey(id)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var b Book
		if err := json.Unmarshal(raw, &b); err == nil {
			return b, nil
		}
		log.Warn().Str("key", key).Msg("dropping undecodable cache entry")
		r.evict(ctx, id)
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	b, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return Book{}, err
	}

	if raw, err := json.Marshal(b); err == nil {
		if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return b, nil
}

func (r *CachedRepo) Save(ctx context.Context, b *Book) error {
	if err := r.Repository.Save(ctx, b); err != nil {
		return err
	}
	r.evict(ctx, b.ID)
	return nil
}

func (r *CachedRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	deleted, err := r.Repository.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	r.evict(ctx, id)
	return deleted, nil
}

func (r *CachedRepo) evict(ctx context.Context, id int64) {
	if err := r.rdb.Del(ctx, bookKey(id)).Err(); err != nil {
		log.Warn().Err(err).Int64("book_id", id).Msg("cache evict failed")
	}
}
