package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kickabout-app/kickabout/common/cache"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/redis/go-redis/v9"
)

const (
	ActivePlayersLimit = 1000
	AttendanceTTL      = 30 * 24 * time.Hour
)

// AttendanceRepository keeps a Redis view of how many games each player has
// joined. It is fed from the event stream and is eventually consistent; the
// admission path never reads it.
type AttendanceRepository struct {
	client *redis.Client
	logger *logger.Logger
}

type PlayerActivity struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	GamesJoined int64  `json:"games_joined"`
}

func NewAttendanceRepository(redisClient *cache.RedisClient, log *logger.Logger) *AttendanceRepository {
	return &AttendanceRepository{
		client: redisClient.GetClient(),
		logger: log.With("component", "AttendanceRepository"),
	}
}

func attendanceKey() string {
	return "attendance:players"
}

func usernamesHashKey() string {
	return "usernames"
}

func (r *AttendanceRepository) RecordJoin(ctx context.Context, userId, displayName string) error {
	pipe := r.client.Pipeline()

	pipe.HSet(ctx, usernamesHashKey(), userId, displayName)
	pipe.ZIncrBy(ctx, attendanceKey(), 1, userId)
	pipe.ZRemRangeByRank(ctx, attendanceKey(), 0, -ActivePlayersLimit-1)
	pipe.Expire(ctx, attendanceKey(), AttendanceTTL)
	pipe.Expire(ctx, usernamesHashKey(), AttendanceTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to record join",
			"error", err,
			"user_id", userId,
		)
		return fmt.Errorf("failed to record join: %w", err)
	}

	return nil
}

func (r *AttendanceRepository) RecordLeave(ctx context.Context, userId string) error {
	if err := r.client.ZIncrBy(ctx, attendanceKey(), -1, userId).Err(); err != nil {
		r.logger.Error("Failed to record leave",
			"error", err,
			"user_id", userId,
		)
		return fmt.Errorf("failed to record leave: %w", err)
	}

	return nil
}

// TopPlayers returns the most active players, highest games-joined first.
func (r *AttendanceRepository) TopPlayers(ctx context.Context, limit int64) ([]PlayerActivity, error) {
	if limit <= 0 || limit > ActivePlayersLimit {
		limit = ActivePlayersLimit
	}

	members, err := r.client.ZRevRangeWithScores(ctx, attendanceKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read attendance ranking: %w", err)
	}

	players := make([]PlayerActivity, 0, len(members))
	for _, member := range members {
		userId, ok := member.Member.(string)
		if !ok {
			continue
		}

		displayName, err := r.client.HGet(ctx, usernamesHashKey(), userId).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to read player name: %w", err)
		}

		players = append(players, PlayerActivity{
			UserId:      userId,
			DisplayName: displayName,
			GamesJoined: int64(member.Score),
		})
	}

	return players, nil
}
