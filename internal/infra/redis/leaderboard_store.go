package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// LeaderboardStore keeps the global leaderboard in Redis:
//
//	ZADD quizbot:leaderboard {score} {userID}
//	HSET quizbot:leaderboard:meta {userID} {"displayName":...,"total":...}
//
// Record overwrites both entries for the user. Within equal scores ZREVRANGE
// orders members lexically by user id; the in-memory store documents the
// canonical tie-break.
type LeaderboardStore struct {
	client *redis.Client
	prefix string
}

type entryMeta struct {
	DisplayName string `json:"displayName"`
	Total       int    `json:"total"`
}

func NewLeaderboardStore(client *redis.Client, prefix string) *LeaderboardStore {
	if prefix == "" {
		prefix = "quizbot"
	}
	return &LeaderboardStore{client: client, prefix: prefix}
}

func (s *LeaderboardStore) Record(ctx context.Context, entry domain.LeaderboardEntry) error {
	member := strconv.FormatInt(entry.UserID, 10)
	meta, err := json.Marshal(entryMeta{DisplayName: entry.DisplayName, Total: entry.Total})
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.boardKey(), redis.Z{Score: float64(entry.Score), Member: member})
	pipe.HSet(ctx, s.metaKey(), member, meta)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.boardKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	members := make([]string, 0, len(zs))
	for _, z := range zs {
		members = append(members, z.Member.(string))
	}
	metas, err := s.client.HMGet(ctx, s.metaKey(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("top meta: %w", err)
	}

	out := make([]domain.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		userID, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue // foreign member, skip
		}
		e := domain.LeaderboardEntry{
			UserID: userID,
			Score:  int(z.Score),
		}
		if raw, ok := metas[i].(string); ok {
			var m entryMeta
			if json.Unmarshal([]byte(raw), &m) == nil {
				e.DisplayName = m.DisplayName
				e.Total = m.Total
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *LeaderboardStore) boardKey() string {
	return s.prefix + ":leaderboard"
}

func (s *LeaderboardStore) metaKey() string {
	return s.prefix + ":leaderboard:meta"
}
