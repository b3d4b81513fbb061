package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-directory/backend/internal/exhibitions"
	"github.com/expo-directory/backend/pkg/apperr"
	"github.com/expo-directory/backend/pkg/queue"
	"github.com/expo-directory/backend/pkg/storage"
)

// PublishedImages is the read side the processor needs.
type PublishedImages interface {
	GetPublishedImage(ctx context.Context, exhibitionID uuid.UUID) (*exhibitions.Image, error)
}

// Mirror writes and removes objects in the public image bucket.
type Mirror interface {
	PutImage(ctx context.Context, key, contentType string, data []byte) error
	DeleteImage(ctx context.Context, key string) error
}

// JobQueue is the queue surface the run loop needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ImageSyncProcessor reconciles the public image mirror with the database: a
// published exhibition with an image is uploaded, anything else is removed.
type ImageSyncProcessor struct {
	images  PublishedImages
	mirror  Mirror
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewImageSyncProcessor creates an image sync processor.
func NewImageSyncProcessor(images PublishedImages, mirror Mirror, q JobQueue, logger *zap.Logger) *ImageSyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageSyncProcessor{images: images, mirror: mirror, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one image sync job.
func (p *ImageSyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeImageSync {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ImageSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	key := storage.ExhibitionImageKey(payload.ExhibitionID)

	img, err := p.images.GetPublishedImage(ctx, payload.ExhibitionID)
	switch {
	case err == nil:
		if err := p.mirror.PutImage(ctx, key, img.ContentType, img.Data); err != nil {
			return fmt.Errorf("mirror image: %w", err)
		}
		p.logger.Info("image mirrored", zap.String("exhibition_id", payload.ExhibitionID.String()), zap.String("key", key))
		return nil
	case apperr.IsKind(err, apperr.KindNotFound):
		if err := p.mirror.DeleteImage(ctx, key); err != nil {
			return fmt.Errorf("remove mirrored image: %w", err)
		}
		p.logger.Info("mirrored image removed", zap.String("exhibition_id", payload.ExhibitionID.String()), zap.String("key", key))
		return nil
	default:
		return fmt.Errorf("load image: %w", err)
	}
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *ImageSyncProcessor) Run(ctx context.Context) {
	p.logger.Info("image sync worker started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("image sync worker stopping")
			return
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ImageSyncProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
