package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bot-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient — сквозной кэш состояния диалога. Источник истины всегда
// Postgres: промах или ошибка кэша просто уводит чтение в БД.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return &RedisClient{
		client: rdb,
		ttl:    ttl,
		log:    log,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func dialogueKey(convID int64) string {
	return fmt.Sprintf("dialogue:%d", convID)
}

func (r *RedisClient) GetDialogue(ctx context.Context, convID int64) (*models.DialogueState, error) {
	data, err := r.client.Get(ctx, dialogueKey(convID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st models.DialogueState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *RedisClient) SetDialogue(ctx context.Context, st *models.DialogueState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, dialogueKey(st.ConversationID), data, r.ttl).Err()
}

func (r *RedisClient) DelDialogue(ctx context.Context, convID int64) error {
	return r.client.Del(ctx, dialogueKey(convID)).Err()
}
