package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	return &RedisStore{client: redis.NewClient(opts)}
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// PublishDispatch puts req on the dispatch channel.
func (s *RedisStore) PublishDispatch(ctx context.Context, req models.DispatchRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, RedisDispatchChannel, data).Err()
}

// Run feeds every message of the dispatch channel to handle until ctx ends.
func (s *RedisStore) Run(ctx context.Context, handle NotificationHandler) error {
	pubsub := s.client.Subscribe(ctx, RedisDispatchChannel)
	defer pubsub.Close()

	// Wait for the subscription confirmation so publishes right after startup are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", RedisDispatchChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(ctx, []byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}

func typingKey(channel string) string {
	return "typing:" + strings.ToLower(channel)
}

// SetTyping marks userID as typing in channel for ttl.
func (s *RedisStore) SetTyping(ctx context.Context, channel, userID string, ttl time.Duration) error {
	key := typingKey(channel)
	expires := time.Now().Add(ttl)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(expires.UnixMilli()), Member: userID})
	pipe.PExpire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// ClearTyping removes userID from channel.
func (s *RedisStore) ClearTyping(ctx context.Context, channel, userID string) error {
	return s.client.ZRem(ctx, typingKey(channel), userID).Err()
}

// TypingUsers returns the unexpired typing signals of channel.
func (s *RedisStore) TypingUsers(ctx context.Context, channel string) ([]models.TypingUser, error) {
	key := typingKey(channel)
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	// Expired members are dropped lazily on read.
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}
	members, err := s.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	users := make([]models.TypingUser, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		users = append(users, models.TypingUser{
			Channel:   channel,
			UserID:    id,
			ExpiresAt: time.UnixMilli(int64(m.Score)),
		})
	}
	return users, nil
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

func otpAttemptsKey(email string) string {
	return otpKey(email) + ":attempts"
}

// SaveOTPSecret stores a fresh secret and resets the attempt counter.
func (s *RedisStore) SaveOTPSecret(ctx context.Context, email, secret string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKey(email), secret, ttl)
	pipe.Del(ctx, otpAttemptsKey(email))
	_, err := pipe.Exec(ctx)
	return err
}

// GetOTPSecret returns errs.ErrNotFound once the secret expired.
func (s *RedisStore) GetOTPSecret(ctx context.Context, email string) (string, error) {
	val, err := s.client.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	return val, err
}

// IncrOTPAttempts counts a verification attempt.
func (s *RedisStore) IncrOTPAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	key := otpAttemptsKey(email)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// DeleteOTP drops the secret and its counter.
func (s *RedisStore) DeleteOTP(ctx context.Context, email string) error {
	return s.client.Del(ctx, otpKey(email), otpAttemptsKey(email)).Err()
}
