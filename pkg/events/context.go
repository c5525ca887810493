package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

type sinksKey struct{}

// WithEventSinks returns a context carrying the given sinks in addition to
// any already attached. The parent context is left untouched.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := make([]EventSink, 0, len(existing)+len(sinks))
	combined = append(combined, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, sinksKey{}, combined)
}

// GetEventSinks returns the sinks attached to the context, or nil.
func GetEventSinks(ctx context.Context) []EventSink {
	sinks, _ := ctx.Value(sinksKey{}).([]EventSink)
	return sinks
}

// PublishEventToContext fans an event out to every sink attached to the
// context. Publishing is best effort: a failing sink is logged at debug
// level and skipped.
func PublishEventToContext(ctx context.Context, event Event) {
	for _, sink := range GetEventSinks(ctx) {
		if err := sink.PublishEvent(event); err != nil {
			log.Debug().Err(err).Str("event_type", string(event.Type())).Msg("event sink publish failed")
		}
	}
}
