// Package queue owns the shared Redis client used for the cover cleanup
// queue, purchase intents, rate limits and the catalog cache.
package queue

import (
	"context"
	"time"

	"book_market/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var RDB *redis.Client

func ConnectRedis(log logrus.FieldLogger) {
	cfg := config.AppConfig
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis at %s: %v", cfg.RedisAddr, err)
	}

	RDB = client
	log.WithField("redis", cfg.RedisAddr).Info("connected to redis")
}

func CloseRedis(log logrus.FieldLogger) {
	if RDB == nil {
		return
	}
	if err := RDB.Close(); err != nil {
		log.WithError(err).Warn("closing redis client")
		return
	}
	log.Info("redis client closed")
}
