package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/shswrite/internal/types"
)

const (
	// Redis key（均带前缀）
	roundKeyPrefix     = "round:"
	recentRoundsKey    = "rounds:recent"
	totalRoundsKey     = "rounds:total"
	fastestKey         = "leaderboard:fastest"
	dailyFastestPrefix = "leaderboard:daily:"

	// 最近对局保留条数
	recentRoundsLimit = 100
	// 日榜过期时间
	dailyExpiration = 48 * time.Hour
)

// RoundRecord 已完成的对局记录
type RoundRecord struct {
	RoundID        string              `json:"round_id"`
	Phrase         string              `json:"phrase"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	StartedAt      int64               `json:"started_at"`  // 毫秒
	FinishedAt     int64               `json:"finished_at"` // 毫秒
	Players        []types.RoundPlayer `json:"players"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	RoundRecord
}

// RedisStore 对局结果存储，只保存已完成的对局，不恢复会话状态
type RedisStore struct {
	client   *redis.Client
	prefix   string
	roundTTL time.Duration
}

// Option 存储选项
type Option func(*RedisStore)

// WithKeyPrefix 所有 key 的前缀
func WithKeyPrefix(prefix string) Option {
	return func(rs *RedisStore) { rs.prefix = prefix }
}

// WithRoundTTL 对局记录过期时间，0 表示永久
func WithRoundTTL(ttl time.Duration) Option {
	return func(rs *RedisStore) { rs.roundTTL = ttl }
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	rs := &RedisStore{client: client}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

func (rs *RedisStore) key(k string) string {
	return rs.prefix + k
}

func (rs *RedisStore) dailyKey(t time.Time) string {
	return rs.key(dailyFastestPrefix + t.UTC().Format("2006-01-02"))
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close 关闭连接
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// --- 对局记录 ---

// RecordRound 保存对局结果并更新排行榜
func (rs *RedisStore) RecordRound(ctx context.Context, res types.RoundResult) error {
	if res.RoundID == "" {
		return errors.New("round id is empty")
	}

	record := RoundRecord{
		RoundID:        res.RoundID,
		Phrase:         res.Phrase,
		ElapsedSeconds: res.ElapsedSeconds,
		StartedAt:      res.StartedAt.UnixMilli(),
		FinishedAt:     res.FinishedAt.UnixMilli(),
		Players:        res.Players,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化对局数据失败: %w", err)
	}

	member := redis.Z{Score: res.ElapsedSeconds, Member: res.RoundID}
	dailyKey := rs.dailyKey(res.FinishedAt)

	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, rs.key(roundKeyPrefix+res.RoundID), data, rs.roundTTL)
		pipe.ZAdd(ctx, rs.key(fastestKey), member)
		pipe.ZAdd(ctx, dailyKey, member)
		pipe.Expire(ctx, dailyKey, dailyExpiration)
		pipe.LPush(ctx, rs.key(recentRoundsKey), res.RoundID)
		pipe.LTrim(ctx, rs.key(recentRoundsKey), 0, recentRoundsLimit-1)
		pipe.Incr(ctx, rs.key(totalRoundsKey))
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存对局失败: %w", err)
	}
	return nil
}

// LoadRound 加载对局，不存在时返回 nil
func (rs *RedisStore) LoadRound(ctx context.Context, roundID string) (*RoundRecord, error) {
	data, err := rs.client.Get(ctx, rs.key(roundKeyPrefix+roundID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var record RoundRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("反序列化对局数据失败: %w", err)
	}
	return &record, nil
}

// RecentRounds 最近完成的对局，新的在前
func (rs *RedisStore) RecentRounds(ctx context.Context, limit int) ([]*RoundRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := rs.client.LRange(ctx, rs.key(recentRoundsKey), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return rs.loadRounds(ctx, ids)
}

// TotalRounds 累计完成的对局数
func (rs *RedisStore) TotalRounds(ctx context.Context) (int64, error) {
	n, err := rs.client.Get(ctx, rs.key(totalRoundsKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// --- 排行榜 ---

// Fastest 历史最快的对局
func (rs *RedisStore) Fastest(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return rs.leaderboard(ctx, rs.key(fastestKey), limit)
}

// FastestOn 某一天（UTC）最快的对局
func (rs *RedisStore) FastestOn(ctx context.Context, day time.Time, limit int) ([]*LeaderboardEntry, error) {
	return rs.leaderboard(ctx, rs.dailyKey(day), limit)
}

func (rs *RedisStore) leaderboard(ctx context.Context, key string, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	ids, err := rs.client.ZRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	records, err := rs.loadRounds(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, len(records))
	for i, rec := range records {
		entries[i] = &LeaderboardEntry{Rank: i + 1, RoundRecord: *rec}
	}
	return entries, nil
}

// loadRounds 批量加载对局，跳过已过期的记录
func (rs *RedisStore) loadRounds(ctx context.Context, ids []string) ([]*RoundRecord, error) {
	if len(ids) == 0 {
		return []*RoundRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rs.key(roundKeyPrefix + id)
	}

	values, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*RoundRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var record RoundRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("反序列化对局数据失败: %w", err)
		}
		records = append(records, &record)
	}
	return records, nil
}

// --- types.RoundObserver ---

// RoundStarted 不记录未完成的对局
func (rs *RedisStore) RoundStarted(context.Context, types.RoundStarted) error {
	return nil
}

// RoundFinished 记录完成的对局
func (rs *RedisStore) RoundFinished(ctx context.Context, res types.RoundResult) error {
	return rs.RecordRound(ctx, res)
}
