package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/jiminy/pkg/settings"
	"github.com/rs/zerolog/log"
)

const shutdownFlushTimeout = 2 * time.Second

// UsageLogger is the opt-in usage statistics service. Every Log method
// writes exactly one local structured record and queues the event for the
// remote collector. Session-boundary, tool-call and API-error events flush
// immediately; the rest ride the flush interval gate.
//
// A nil *UsageLogger is a safe no-op on every method, so call sites never
// need to branch on whether telemetry is enabled.
type UsageLogger struct {
	client *Client
	gate   time.Duration

	mu        sync.Mutex
	lastFlush time.Time
}

type LoggerOption func(*UsageLogger)

// WithClient substitutes the remote client, primarily for tests.
func WithClient(client *Client) LoggerOption {
	return func(l *UsageLogger) {
		l.client = client
	}
}

// NewUsageLogger builds the service when usage statistics are enabled and
// returns nil otherwise.
func NewUsageLogger(ts *settings.TelemetrySettings, sessionID string, options ...LoggerOption) *UsageLogger {
	if ts == nil || !ts.UsageStatisticsEnabled {
		return nil
	}

	gate := time.Duration(ts.FlushIntervalMs) * time.Millisecond
	if gate <= 0 {
		gate = time.Minute
	}

	l := &UsageLogger{
		client: NewClient(
			WithEndpoint(ts.Endpoint),
			WithEmail(ts.Email),
			WithSessionID(sessionID),
		),
		gate:      gate,
		lastFlush: time.Now(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *UsageLogger) LogStartSession(ev *StartSessionEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.flushNow()
}

func (l *UsageLogger) LogNewPrompt(ev *UserPromptEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.maybeFlush()
}

func (l *UsageLogger) LogToolCall(ev *ToolCallEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.flushNow()
}

func (l *UsageLogger) LogApiRequest(ev *ApiRequestEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.maybeFlush()
}

func (l *UsageLogger) LogApiError(ev *ApiErrorEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.flushNow()
}

func (l *UsageLogger) LogApiResponse(ev *ApiResponseEvent) {
	if l == nil || ev == nil {
		return
	}
	l.record(ev)
	l.maybeFlush()
}

// Shutdown records the end of the session and flushes synchronously with a
// short timeout so a terminating process still delivers what it can.
func (l *UsageLogger) Shutdown() {
	if l == nil {
		return
	}
	l.record(NewEndSessionEvent())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	l.client.Flush(ctx)
}

func (l *UsageLogger) record(ev Event) {
	log.Debug().Str("usage_event", ev.EventName()).Object("data", ev).Msg("usage event")
	l.client.LogEvent(ev)
}

func (l *UsageLogger) flushNow() {
	l.mu.Lock()
	l.lastFlush = time.Now()
	l.mu.Unlock()
	l.client.FlushInBackground()
}

func (l *UsageLogger) maybeFlush() {
	l.mu.Lock()
	now := time.Now()
	due := now.Sub(l.lastFlush) >= l.gate
	if due {
		l.lastFlush = now
	}
	l.mu.Unlock()

	if due {
		l.client.FlushInBackground()
	}
}
