package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"book_market/internal/common"
	"book_market/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// CatalogSearcher is the external book metadata API.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]model.CatalogVolume, error)
}

const (
	catalogCachePrefix = "catalog:search:"
	catalogCallTimeout = 15 * time.Second
)

type CatalogService struct {
	upstream CatalogSearcher
	rdb      *redis.Client
	ttl      time.Duration
	sf       singleflight.Group
	cb       *gobreaker.CircuitBreaker
	log      logrus.FieldLogger

	// callTimeout bounds a shared upstream call, which outlives the request
	// that started it.
	callTimeout time.Duration
}

func NewCatalogService(upstream CatalogSearcher, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CatalogService {
	st := gobreaker.Settings{
		Name:        "CatalogAPI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("CircuitBreaker[%s] state changed from %s to %s", name, from, to)
		},
	}
	return &CatalogService{
		upstream: upstream,
		rdb:      rdb,
		ttl:      ttl,
		cb:       gobreaker.NewCircuitBreaker(st),
		log:      log,

		callTimeout: catalogCallTimeout,
	}
}

func catalogKey(query string) string {
	return catalogCachePrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Search answers from Redis when it can. Misses for the same key are
// coalesced into one upstream call behind the circuit breaker; that call is
// detached from the caller's cancellation. Redis errors only cost the cache.
func (s *CatalogService) Search(ctx context.Context, query string) ([]model.CatalogVolume, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is required: %w", common.ErrBadRequest)
	}
	key := catalogKey(query)

	if vols, ok := s.fromCache(ctx, key); ok {
		return vols, nil
	}

	result, err, shared := s.sf.Do(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()

		res, err := s.cb.Execute(func() (interface{}, error) {
			return s.upstream.Search(callCtx, query)
		})
		if err != nil {
			return nil, err
		}
		vols := res.([]model.CatalogVolume)

		data, _ := json.Marshal(vols)
		ttl := s.ttl + time.Duration(rand.Intn(60))*time.Second
		if err := s.rdb.Set(callCtx, key, data, ttl).Err(); err != nil {
			s.log.Errorf("[CatalogSearch] failed to write cache for redis key %s: %v", key, err)
		}
		return vols, nil
	})
	if err != nil {
		s.log.WithError(err).WithField("query", query).Warn("catalog search failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("catalog temporarily unavailable: %w", common.ErrServiceUnavailable)
		}
		return nil, fmt.Errorf("catalog search failed: %w", common.ErrServiceUnavailable)
	}
	if shared {
		s.log.Debugf("shared catalog result for key: %s", key)
	}
	return result.([]model.CatalogVolume), nil
}

func (s *CatalogService) fromCache(ctx context.Context, key string) ([]model.CatalogVolume, bool) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Errorf("[CatalogSearch] redis get %s failed: %v", key, err)
		}
		return nil, false
	}
	var vols []model.CatalogVolume
	if err := json.Unmarshal(raw, &vols); err != nil {
		s.log.Errorf("[CatalogSearch] corrupt cache entry %s: %v", key, err)
		return nil, false
	}
	return vols, true
}
