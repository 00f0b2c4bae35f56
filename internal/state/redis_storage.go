package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	conversationKeyPattern  = "koi:conversation:%d"
	conversationScanPattern = "koi:conversation:*"
	conversationScanBatch   = 100
)

// RedisStorage persists conversations in Redis as JSON with a sliding TTL.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored conversation or ErrStateNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get conversation from redis", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		s.log.Error("failed to decode conversation", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil, err
	}

	return &conv, nil
}

// Set saves the conversation and refreshes its TTL.
func (s *RedisStorage) Set(ctx context.Context, chatID int64, conv *Conversation) error {
	if conv == nil {
		return ErrNilConversation
	}

	conv.ChatID = chatID
	conv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(conv)
	if err != nil {
		s.log.Error("failed to encode conversation", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return err
	}

	if err := s.client.Set(ctx, conversationKey(chatID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save conversation in redis", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return err
	}

	return nil
}

// Clear removes the stored conversation.
func (s *RedisStorage) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, conversationKey(chatID)).Err(); err != nil {
		s.log.Error("failed to clear conversation", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return err
	}

	return nil
}

// All retrieves every stored conversation by scanning keys.
func (s *RedisStorage) All(ctx context.Context) ([]*Conversation, error) {
	var (
		cursor uint64
		result []*Conversation
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, conversationScanPattern, conversationScanBatch).Result()
		if err != nil {
			s.log.Error("failed to scan conversations", slog.Any("error", err))
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch conversation", slog.String("key", key), slog.Any("error", err))
				return nil, err
			}

			var conv Conversation
			if err := json.Unmarshal(data, &conv); err != nil {
				s.log.Error("failed to decode conversation", slog.String("key", key), slog.Any("error", err))
				continue
			}

			result = append(result, &conv)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func conversationKey(chatID int64) string {
	return fmt.Sprintf(conversationKeyPattern, chatID)
}
