package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
)

type fakeStore struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeStore) FetchPending(limit int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailed(id uuid.UUID, cause error, maxAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	errs     []error
	messages []wireMessage
	channels []string
}

func (f *fakePublisher) Ping(context.Context) error { return nil }

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload any) error {
	call := len(f.messages)
	body, ok := payload.([]byte)
	if !ok {
		return errors.New("payload must be bytes")
	}
	var msg wireMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	f.channels = append(f.channels, channel)
	if call < len(f.errs) {
		return f.errs[call]
	}
	return nil
}

type fakePinger struct{}

func (fakePinger) Ping(context.Context) error { return nil }

func newTestService(t *testing.T, store *fakeStore, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.Channel = "test-events"
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	cfg.Outbox.PollIntervalMS = 5
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		DB:        fakePinger{},
		Store:     store,
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func pendingEvent(t *testing.T) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		Status:        enums.OutboxStatusPending,
		CreatedAt:     time.Now(),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := pendingEvent(t)
	store := &fakeStore{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, store, pub)

	drained, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if drained {
		t.Fatalf("partial batch must not report drained")
	}
	if len(store.published) != 1 || store.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", store.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	if pub.channels[0] != "test-events" {
		t.Fatalf("published to wrong channel %q", pub.channels[0])
	}
	msg := pub.messages[0]
	if msg.OutboxID != event.ID || msg.EventType != string(enums.EventOrderCreated) {
		t.Fatalf("wire message carries wrong identity: %+v", msg)
	}
	if string(msg.Payload) != `{"version":1}` {
		t.Fatalf("payload must pass through untouched, got %s", msg.Payload)
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	first := pendingEvent(t)
	second := pendingEvent(t)
	store := &fakeStore{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{errs: []error{errors.New("transient")}}
	service := newTestService(t, store, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(store.failed) != 1 || store.failed[0] != first.ID {
		t.Fatalf("expected first event marked failed, got %v", store.failed)
	}
	if len(store.published) != 1 || store.published[0] != second.ID {
		t.Fatalf("expected second event marked published, got %v", store.published)
	}
}

func TestProcessBatchReportsDrainedOnFullBatch(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 10; i++ {
		store.events = append(store.events, pendingEvent(t))
	}
	service := newTestService(t, store, &fakePublisher{})

	drained, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !drained {
		t.Fatalf("full batch must report drained")
	}
}

func TestProcessBatchSurfacesStoreErrors(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("db down")}
	service := newTestService(t, store, &fakePublisher{})

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error to surface")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(t, store, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
