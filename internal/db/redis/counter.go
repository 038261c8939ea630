package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/safebites/menuquery/internal/db"
)

// IncrBy atomically increments the counter at key by val.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	cmd := s.b().Incrby().Key(key).Increment(val).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// GetCounter reads the counter at key. A missing key reads as zero.
func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Get().Key(key).Build()
	val, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	return val, nil
}
