package session

import (
	"context"
	"time"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/scheduler"
	"github.com/go-go-golems/jiminy/pkg/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations caps the send/schedule cycle of one prompt.
const DefaultMaxIterations = 8

// Loop drives a prompt to completion: send the message, execute whatever
// tools the model requested, feed the results back, repeat until the model
// answers without tool calls or the iteration cap is reached.
type Loop struct {
	session       *Session
	scheduler     *scheduler.Scheduler
	maxIterations int
	usage         *telemetry.UsageLogger
}

type LoopOption func(*Loop)

func WithMaxIterations(max int) LoopOption {
	return func(l *Loop) {
		if max > 0 {
			l.maxIterations = max
		}
	}
}

func WithUsageLogger(usage *telemetry.UsageLogger) LoopOption {
	return func(l *Loop) {
		l.usage = usage
	}
}

func NewLoop(session *Session, sched *scheduler.Scheduler, options ...LoopOption) *Loop {
	l := &Loop{
		session:       session,
		scheduler:     sched,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Run processes one user prompt. Tool responses from every completed call,
// rejected and cancelled ones included, become the parts of the next
// message so the model always sees an answer for each request it made.
func (l *Loop) Run(ctx context.Context, prompt string, emit func(events.Event)) error {
	l.usage.LogNewPrompt(telemetry.NewUserPromptEvent(prompt, false))

	parts := []generation.Part{generation.NewTextPart(prompt)}
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		l.usage.LogApiRequest(telemetry.NewApiRequestEvent(l.session.Model()))
		started := time.Now()

		turn, err := l.session.SendMessageStream(ctx, parts, emit)
		if err != nil {
			l.usage.LogApiError(telemetry.NewApiErrorEvent(l.session.Model(), err, time.Since(started)))
			return err
		}
		l.usage.LogApiResponse(telemetry.NewApiResponseEvent(l.session.Model(), time.Since(started), turn.Usage()))

		if len(turn.PendingToolCalls) == 0 {
			return nil
		}
		if ctx.Err() != nil {
			// The turn already closed with a cancelled event; pending
			// calls are not executed.
			return nil
		}

		calls, err := l.scheduler.Schedule(ctx, turn.PendingToolCalls)
		if err != nil {
			return err
		}

		var next []generation.Part
		for _, call := range calls {
			l.usage.LogToolCall(telemetry.NewToolCallEvent(call))
			if call.Response != nil {
				next = append(next, call.Response.ResponseParts...)
			}
		}
		parts = next
	}

	log.Debug().Int("max_iterations", l.maxIterations).Msg("tool loop reached its iteration cap")
	return nil
}
