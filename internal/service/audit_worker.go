package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"github.com/dreamic/permission-tracker/internal/events"
	"github.com/dreamic/permission-tracker/internal/observability"
	"github.com/dreamic/permission-tracker/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minAuditConcurrency = 1

// AuditWorker consumes permission events from the broker and persists them
// to the audit trail.
type AuditWorker struct {
	repo        repository.EventRepository
	consumer    events.Consumer
	metrics     *observability.Metrics
	logger      *zap.Logger
	concurrency int
}

func NewAuditWorker(
	repo repository.EventRepository,
	consumer events.Consumer,
	concurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*AuditWorker, error) {
	if repo == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("event consumer is required")
	}
	if concurrency < minAuditConcurrency {
		concurrency = minAuditConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditWorker{
		repo:        repo,
		consumer:    consumer,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the event queue until context cancellation.
func (w *AuditWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("audit worker started", zap.Int("workerId", workerID))

			if err := w.consumer.Consume(groupCtx, w.storeEvent); err != nil {
				w.logger.Error("audit worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("audit worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *AuditWorker) storeEvent(ctx context.Context, event domain.PermissionEvent) error {
	start := time.Now()
	if err := w.repo.Insert(ctx, &event); err != nil {
		w.logger.Error("failed to store permission event",
			zap.String("eventId", event.EventID),
			zap.String("installId", event.InstallID),
			zap.Error(err),
		)
		return err
	}

	w.metrics.IncAuditEventStored(event.Type.String())
	w.logger.Debug("permission event stored",
		zap.String("eventId", event.EventID),
		zap.String("type", event.Type.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
