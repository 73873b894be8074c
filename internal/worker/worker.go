// Package worker runs queued session sync jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jab-consulting/portal/internal/sessions"
	"github.com/jab-consulting/portal/pkg/queue"
)

// SyncProcessor consumes session sync jobs and runs the syncer.
type SyncProcessor struct {
	syncer *sessions.Syncer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewSyncProcessor creates a sync job processor.
func NewSyncProcessor(syncer *sessions.Syncer, q *queue.Queue, logger *zap.Logger) *SyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncProcessor{syncer: syncer, queue: q, logger: logger}
}

// Process executes one sync job.
func (p *SyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSessionSync {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SessionSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	stats, err := p.syncer.Run(ctx, sessions.Options{
		Query:          payload.Query,
		WindowPastDays: payload.WindowPastDays,
	})
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}
	p.logger.Info("sync job done",
		zap.String("job_id", job.ID),
		zap.Int("events", stats.EventsSeen),
		zap.Int("created", stats.SessionsCreated),
		zap.Int("updated", stats.SessionsUpdated),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SyncProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sync worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
