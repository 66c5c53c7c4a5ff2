package service

import (
	"context"
	"encoding/json"

	"book_market/internal/common"
	"book_market/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// CoverCleaner schedules removal of a cover blob no listing points to.
type CoverCleaner interface {
	Enqueue(ctx context.Context, ref string) error
}

type CoverCleanupService struct {
	rdb   *redis.Client
	queue string
}

func NewCoverCleanupService(rdb *redis.Client, queue string) *CoverCleanupService {
	return &CoverCleanupService{rdb: rdb, queue: queue}
}

func (s *CoverCleanupService) Enqueue(ctx context.Context, ref string) error {
	return s.push(ctx, model.CoverCleanupJob{Ref: ref})
}

// Requeue puts a failed job back on the queue with its attempt count bumped.
func (s *CoverCleanupService) Requeue(ctx context.Context, job model.CoverCleanupJob) error {
	job.Attempts++
	return s.push(ctx, job)
}

func (s *CoverCleanupService) Queue() string {
	return s.queue
}

func (s *CoverCleanupService) push(ctx context.Context, job model.CoverCleanupJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return common.Errorf("failed to marshal cover cleanup job: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.queue, payload).Err(); err != nil {
		return common.Errorf("failed to push cover cleanup job to Redis queue: %w", err)
	}
	return nil
}
