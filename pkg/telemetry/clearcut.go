package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// LogSourceName identifies this client in collector payloads.
	LogSourceName = "JIMINY_CLI"

	// DefaultEndpoint is the clearcut-style collector URL.
	DefaultEndpoint = "https://play.googleapis.com/log"

	// DefaultMaxQueuedEvents bounds the in-memory retry buffer. The oldest
	// entries are dropped first when the bound is hit.
	DefaultMaxQueuedEvents = 1000

	defaultRequestTimeout = 10 * time.Second
)

// LogEventEntry is one queued usage record in collector wire shape.
type LogEventEntry struct {
	EventTimeMs         int64  `json:"event_time_ms"`
	SourceExtensionJSON string `json:"source_extension_json"`
}

type userInfo struct {
	Email string `json:"email"`
}

type logRequest struct {
	LogSourceName  string          `json:"log_source_name"`
	RequestTimeMs  int64           `json:"request_time_ms"`
	SequenceNumber int64           `json:"sequence_number"`
	LogEvent       []LogEventEntry `json:"log_event"`
	UserInfo       *userInfo       `json:"user_info,omitempty"`
}

// Client batches usage events and ships them to the collector. Delivery is
// at-least-once: a failed flush restores its exact batch to the queue front,
// and the monotonic per-batch sequence number gives the collector a replay
// signal. At most one flush is outstanding at any time.
type Client struct {
	endpoint  string
	email     string
	sessionID string
	client    *http.Client
	maxQueued int

	mu         sync.Mutex
	queue      []LogEventEntry
	sequence   int64
	inFlight   bool
	nextWaitMs int64
}

type ClientOption func(*Client)

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithEmail(email string) ClientOption {
	return func(c *Client) {
		c.email = email
	}
}

func WithSessionID(sessionID string) ClientOption {
	return func(c *Client) {
		c.sessionID = sessionID
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

func WithMaxQueuedEvents(max int) ClientOption {
	return func(c *Client) {
		if max > 0 {
			c.maxQueued = max
		}
	}
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		endpoint:  DefaultEndpoint,
		client:    &http.Client{Timeout: defaultRequestTimeout},
		maxQueued: DefaultMaxQueuedEvents,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type sourceExtension struct {
	EventName string `json:"event_name"`
	SessionID string `json:"session_id,omitempty"`
	Event     Event  `json:"event"`
}

// LogEvent wraps ev in collector wire shape and enqueues it. Events beyond
// the buffer bound push out the oldest queued entries.
func (c *Client) LogEvent(ev Event) {
	ext, err := json.Marshal(sourceExtension{
		EventName: ev.EventName(),
		SessionID: c.sessionID,
		Event:     ev,
	})
	if err != nil {
		log.Debug().Err(err).Str("event", ev.EventName()).Msg("failed to encode usage event, dropping it")
		return
	}

	entry := LogEventEntry{
		EventTimeMs:         time.Now().UnixMilli(),
		SourceExtensionJSON: string(ext),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) >= c.maxQueued {
		dropped := len(c.queue) - c.maxQueued + 1
		c.queue = c.queue[dropped:]
		log.Debug().Int("dropped", dropped).Msg("usage event buffer full, dropped oldest entries")
	}
	c.queue = append(c.queue, entry)
}

// FlushInBackground ships the queue on a detached goroutine. It never
// blocks, never returns an error and never panics; failures are swallowed
// with a debug log inside Flush.
func (c *Client) FlushInBackground() {
	go c.Flush(context.Background())
}

// Flush drains the queue into one batch and posts it to the collector. The
// drain happens atomically under the mutex; when another flush is already
// outstanding the call returns immediately and the queue is left untouched.
// A failed post restores the exact batch to the queue front, preserving
// order relative to entries enqueued during the attempt.
func (c *Client) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.inFlight || len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.queue
	c.queue = nil
	c.inFlight = true
	sequence := c.sequence
	c.sequence++
	c.mu.Unlock()

	err := c.send(ctx, batch, sequence)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		restored := make([]LogEventEntry, 0, len(batch)+len(c.queue))
		restored = append(restored, batch...)
		restored = append(restored, c.queue...)
		c.queue = restored
	}
	c.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Int("batch_size", len(batch)).Msg("usage flush failed, batch re-queued")
	}
}

func (c *Client) send(ctx context.Context, batch []LogEventEntry, sequence int64) error {
	request := []logRequest{{
		LogSourceName:  LogSourceName,
		RequestTimeMs:  time.Now().UnixMilli(),
		SequenceNumber: sequence,
		LogEvent:       batch,
	}}
	if c.email != "" {
		request[0].UserInfo = &userInfo{Email: c.email}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "failed to marshal usage batch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build usage request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post usage batch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("usage collector returned status %d", resp.StatusCode)
	}

	ack, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if waitMs, ok := DecodeLogResponse(ack); ok {
		c.mu.Lock()
		c.nextWaitMs = waitMs
		c.mu.Unlock()
		log.Debug().Int64("next_request_wait_ms", waitMs).Msg("usage collector requested backoff")
	}
	return nil
}

// NextRequestWaitMs returns the backoff hint from the collector's last ack,
// or 0 when none was decoded. Callers may use it to widen the flush gate;
// nothing in the client enforces it.
func (c *Client) NextRequestWaitMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextWaitMs
}

// DecodeLogResponse extracts the next_request_wait_millis value from a
// collector ack. The ack is a protobuf message whose field 1 is a varint,
// so the first byte must be 0x08; anything else decodes to no value.
// A truncated varint (continuation bit set on the final byte) also decodes
// to no value.
func DecodeLogResponse(body []byte) (int64, bool) {
	if len(body) == 0 || body[0] != 0x08 {
		return 0, false
	}
	value, n := protowire.ConsumeVarint(body[1:])
	if n < 0 {
		return 0, false
	}
	return int64(value), true
}
