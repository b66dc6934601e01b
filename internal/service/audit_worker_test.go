package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"github.com/dreamic/permission-tracker/internal/events"
	"github.com/dreamic/permission-tracker/internal/repository"
	"go.uber.org/zap"
)

type fakeConsumer struct {
	deliveries []domain.PermissionEvent
}

func (c *fakeConsumer) Consume(ctx context.Context, handler events.EventHandler) error {
	for _, event := range c.deliveries {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

type fakeEventRepo struct {
	mu       sync.Mutex
	inserted []domain.PermissionEvent
	err      error
}

func (r *fakeEventRepo) Insert(_ context.Context, event *domain.PermissionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, *event)
	return nil
}

func (r *fakeEventRepo) ListByInstall(context.Context, repository.ListParams) ([]domain.PermissionEvent, int64, error) {
	return nil, 0, nil
}

func (r *fakeEventRepo) CountByType(context.Context, string) ([]repository.TypeCount, error) {
	return nil, nil
}

func (r *fakeEventRepo) events() []domain.PermissionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PermissionEvent(nil), r.inserted...)
}

func TestAuditWorkerStoresConsumedEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{}
	consumer := &fakeConsumer{
		deliveries: []domain.PermissionEvent{
			{
				EventID:    "e-1",
				InstallID:  "install-1",
				Type:       domain.EventDenialRecorded,
				OccurredAt: time.UnixMilli(1_700_000_000_000).UTC(),
			},
			{
				EventID:    "e-2",
				InstallID:  "install-1",
				Type:       domain.EventPermissionGranted,
				OccurredAt: time.UnixMilli(1_700_000_060_000).UTC(),
			},
		},
	}

	worker, err := NewAuditWorker(repo, consumer, 1, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuditWorker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(repo.events()) < len(consumer.deliveries) {
		select {
		case <-deadline:
			t.Fatalf("stored %d events before deadline, want %d", len(repo.events()), len(consumer.deliveries))
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stored := repo.events()
	if stored[0].EventID != "e-1" || stored[1].EventID != "e-2" {
		t.Fatalf("stored event ids = %s, %s", stored[0].EventID, stored[1].EventID)
	}
}

func TestAuditWorkerPropagatesStoreFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{err: errors.New("database down")}
	consumer := &fakeConsumer{
		deliveries: []domain.PermissionEvent{
			{
				EventID:    "e-1",
				InstallID:  "install-1",
				Type:       domain.EventDenialRecorded,
				OccurredAt: time.UnixMilli(1_700_000_000_000).UTC(),
			},
		},
	}

	worker, err := NewAuditWorker(repo, consumer, 2, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuditWorker() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := worker.Start(ctx); err == nil {
		t.Fatal("Start() should surface the repository failure")
	}
}

func TestNewAuditWorkerValidatesDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewAuditWorker(nil, &fakeConsumer{}, 1, nil, nil); err == nil {
		t.Fatal("nil repository should be rejected")
	}
	if _, err := NewAuditWorker(&fakeEventRepo{}, nil, 1, nil, nil); err == nil {
		t.Fatal("nil consumer should be rejected")
	}
	if _, err := NewAuditWorker(&fakeEventRepo{}, &fakeConsumer{}, 0, nil, nil); err != nil {
		t.Fatalf("non-positive concurrency should be clamped, got %v", err)
	}
}
