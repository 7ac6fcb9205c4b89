package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"kitstock-api/internal/repository"
)

type publishedEvent struct {
	Type          string
	CorrelationID string
	Payload       any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, correlationID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, CorrelationID: correlationID, Payload: payload})
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.OpenSQL(context.Background(), repository.DialectSQLite, filepath.Join(t.TempDir(), "kitstock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
