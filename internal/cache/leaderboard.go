package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/points"
)

const leaderboardPrefix = "study:leaderboard:"

// Leaderboard 排行榜缓存，按自然日分键
type Leaderboard interface {
	Get(ctx context.Context, day string) ([]points.RankEntry, bool)
	Set(ctx context.Context, day string, entries []points.RankEntry)
	Invalidate(ctx context.Context)
}

// NewRedisClient Addr 为空时返回 nil
func NewRedisClient(cfg common.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		common.Sugar.Warnf("redis ping failed addr=%s err=%v, cache will degrade", cfg.Addr, err)
	}
	return rc
}

// NewLeaderboard rc 为 nil 时不缓存
func NewLeaderboard(rc *redis.Client, ttl time.Duration) Leaderboard {
	if rc == nil {
		return NopLeaderboard{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisLeaderboard{rc: rc, ttl: ttl}
}

type redisLeaderboard struct {
	rc  *redis.Client
	ttl time.Duration
}

func (l *redisLeaderboard) Get(ctx context.Context, day string) ([]points.RankEntry, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := l.rc.Get(ctx, leaderboardPrefix+day).Bytes()
	if err != nil {
		common.Sugar.Debugf("cache get miss key=%s err=%v", leaderboardPrefix+day, err)
		return nil, false
	}
	var entries []points.RankEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (l *redisLeaderboard) Set(ctx context.Context, day string, entries []points.RankEntry) {
	b, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.rc.Set(ctx, leaderboardPrefix+day, b, l.ttl).Err(); err != nil {
		common.Sugar.Warnf("cache set failed key=%s err=%v", leaderboardPrefix+day, err)
	}
}

// Invalidate 删除所有日期的排行榜缓存
func (l *redisLeaderboard) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ {
		keys, cur, err := l.rc.Scan(ctx, cursor, leaderboardPrefix+"*", 1000).Result()
		if err != nil {
			common.Sugar.Warnf("cache invalidate failed prefix=%s err=%v", leaderboardPrefix, err)
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := l.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}

// NopLeaderboard 未配置 redis 时使用
type NopLeaderboard struct{}

func (NopLeaderboard) Get(context.Context, string) ([]points.RankEntry, bool) { return nil, false }
func (NopLeaderboard) Set(context.Context, string, []points.RankEntry)        {}
func (NopLeaderboard) Invalidate(context.Context)                             {}
