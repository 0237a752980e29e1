// Package cache は管理画面の集計をRedisにキャッシュする。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const (
	// 世代番号: stats:admin:gen -> int
	KeyAdminStatsGen = "stats:admin:gen"
	// 集計結果: stats:admin:v{gen} -> AdminStats(JSON)
	keyAdminStatsPrefix = "stats:admin:v"
)

func statsKey(gen int64) string {
	return keyAdminStatsPrefix + strconv.FormatInt(gen, 10)
}

type RedisStatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ usecase.StatsCache = (*RedisStatsCache)(nil)

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func NewRedisStatsCache(rdb *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb, ttl: ttl}
}

func (c *RedisStatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, KeyAdminStatsGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// 今の世代の値が無ければ (zero, gen, false, nil)
func (c *RedisStatsCache) Get(ctx context.Context) (usecase.AdminStats, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return usecase.AdminStats{}, 0, false, err
	}

	b, err := c.rdb.Get(ctx, statsKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return usecase.AdminStats{}, gen, false, nil
	}
	if err != nil {
		return usecase.AdminStats{}, 0, false, err
	}

	var stats usecase.AdminStats
	if err := json.Unmarshal(b, &stats); err != nil {
		// 壊れた値は捨てて取り直させる
		_ = c.rdb.Del(ctx, statsKey(gen)).Err()
		return usecase.AdminStats{}, gen, false, nil
	}
	return stats, gen, true, nil
}

// 古い世代に書いた値は誰にも読まれずTTLで消える
func (c *RedisStatsCache) Set(ctx context.Context, gen int64, stats usecase.AdminStats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey(gen), b, c.ttl).Err()
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, KeyAdminStatsGen).Err()
}
