package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/config"
	coremon "github.com/kilianp07/freightrec/core/monitoring"
)

type memTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *memTransport) Configure(sentry.ClientOptions) {}
func (t *memTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}
func (t *memTransport) Flush(time.Duration) bool              { return true }
func (t *memTransport) FlushWithContext(context.Context) bool { return true }
func (t *memTransport) Close()                                {}

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitor_CapturesWithTags(t *testing.T) {
	tr := &memTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@example.com/1", Transport: tr})
	require.NoError(t, err)
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(errors.New("dataset unavailable"), map[string]string{"error_kind": "data_unavailable"})
	m.CaptureException(nil, nil)
	m.CapturePanic("boom", map[string]string{"transport": "http"})
	m.Flush(time.Second)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.events, 2)
	assert.Equal(t, "data_unavailable", tr.events[0].Tags["error_kind"])
	assert.Equal(t, "http", tr.events[1].Tags["transport"])
}
