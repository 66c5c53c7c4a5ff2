package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book_market/internal/common"
	"book_market/internal/domain/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IntentStore links a password confirmation to the purchase that follows it.
type IntentStore interface {
	Issue(ctx context.Context, userID string, ttl time.Duration) (*model.PurchaseIntent, error)
	// Check reports whether the intent exists and belongs to userID without
	// using it up.
	Check(ctx context.Context, token, userID string) error
	// Consume deletes the intent if and only if it belongs to userID.
	Consume(ctx context.Context, token, userID string) error
}

const purchaseIntentPrefix = "purchase_intent:"

var errIntentUnusable = fmt.Errorf("purchase intent is missing, expired or already used: %w", common.ErrForbidden)

// consumeIntentScript deletes KEYS[1] only when it holds ARGV[1].
var consumeIntentScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

type RedisIntentStore struct {
	rdb *redis.Client
}

func NewRedisIntentStore(rdb *redis.Client) *RedisIntentStore {
	return &RedisIntentStore{rdb: rdb}
}

func (s *RedisIntentStore) Issue(ctx context.Context, userID string, ttl time.Duration) (*model.PurchaseIntent, error) {
	intent := &model.PurchaseIntent{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.rdb.Set(ctx, purchaseIntentPrefix+intent.Token, userID, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store purchase intent: %w", err)
	}
	return intent, nil
}

func (s *RedisIntentStore) Check(ctx context.Context, token, userID string) error {
	owner, err := s.rdb.Get(ctx, purchaseIntentPrefix+token).Result()
	if errors.Is(err, redis.Nil) || (err == nil && owner != userID) {
		return errIntentUnusable
	}
	if err != nil {
		return fmt.Errorf("failed to read purchase intent: %w", err)
	}
	return nil
}

func (s *RedisIntentStore) Consume(ctx context.Context, token, userID string) error {
	deleted, err := consumeIntentScript.Run(ctx, s.rdb, []string{purchaseIntentPrefix + token}, userID).Int64()
	if err != nil {
		return fmt.Errorf("failed to consume purchase intent: %w", err)
	}
	if deleted != 1 {
		return errIntentUnusable
	}
	return nil
}
