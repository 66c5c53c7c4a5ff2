package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"book_market/internal/domain/model"
	"book_market/internal/platform/storage"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const MaxCleanupAttempts = 3

// Requeuer puts a job that failed back on the queue.
type Requeuer interface {
	Requeue(ctx context.Context, job model.CoverCleanupJob) error
}

type CoverCleanupWorker struct {
	rdb      *redis.Client
	queue    string
	blobs    storage.BlobStore
	requeuer Requeuer
	log      logrus.FieldLogger

	// popTimeout bounds each BRPOP so shutdown is noticed promptly.
	popTimeout time.Duration
	errBackoff time.Duration
}

func NewCoverCleanupWorker(rdb *redis.Client, queue string, blobs storage.BlobStore, requeuer Requeuer, log logrus.FieldLogger) *CoverCleanupWorker {
	return &CoverCleanupWorker{
		rdb:        rdb,
		queue:      queue,
		blobs:      blobs,
		requeuer:   requeuer,
		log:        log.WithField("worker", "cover_cleanup"),
		popTimeout: 5 * time.Second,
		errBackoff: 5 * time.Second,
	}
}

func (w *CoverCleanupWorker) Start(ctx context.Context) {
	w.log.Infof("Cover cleanup worker started, listening to queue: %s", w.queue)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Cover cleanup worker stopping...")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.popTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.WithError(err).Errorf("Failed to BRPop from Redis queue '%s'", w.queue)
			select {
			case <-ctx.Done():
			case <-time.After(w.errBackoff):
			}
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			w.log.Warn("BRPop returned an empty job")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *CoverCleanupWorker) handle(ctx context.Context, payload string) {
	var job model.CoverCleanupJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil || job.Ref == "" {
		w.log.WithField("payload", payload).Error("Dropping malformed cover cleanup job")
		return
	}
	entry := w.log.WithFields(logrus.Fields{"ref": job.Ref, "attempts": job.Attempts})

	err := w.blobs.Delete(ctx, job.Ref)
	switch {
	case err == nil:
		entry.Info("Cover blob removed")
	case errors.Is(err, storage.ErrForeignRef):
		entry.Warn("Cover reference does not belong to the configured store, skipping")
	case job.Attempts+1 >= MaxCleanupAttempts:
		entry.WithError(err).Error("Giving up on cover blob removal")
	default:
		entry.WithError(err).Warn("Cover blob removal failed, re-queueing")
		if err := w.requeuer.Requeue(ctx, job); err != nil {
			entry.WithError(err).Error("Failed to re-queue cover cleanup job")
		}
	}
}
