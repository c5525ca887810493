package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithEventSinksAppends(t *testing.T) {
	sink1 := &CollectorSink{}
	sink2 := &CollectorSink{}

	ctx := WithEventSinks(context.Background(), sink1)
	ctx = WithEventSinks(ctx, sink2)

	sinks := GetEventSinks(ctx)
	require.Len(t, sinks, 2)
}

func TestWithEventSinksNoSinksIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithEventSinks(ctx))
	assert.Nil(t, GetEventSinks(ctx))
}

func TestPublishEventToContextFansOut(t *testing.T) {
	sink1 := &CollectorSink{}
	sink2 := &CollectorSink{}
	ctx := WithEventSinks(context.Background(), sink1, sink2)

	ev := NewContentEvent(EventMetadata{}, "hi")
	PublishEventToContext(ctx, ev)

	require.Len(t, sink1.Events(), 1)
	require.Len(t, sink2.Events(), 1)
	assert.Equal(t, EventTypeContent, sink1.Events()[0].Type())
}

func TestPublishEventToContextWithoutSinks(t *testing.T) {
	// must not panic
	PublishEventToContext(context.Background(), NewContentEvent(EventMetadata{}, "hi"))
}

func TestWithEventSinksDoesNotMutateParent(t *testing.T) {
	sink1 := &CollectorSink{}
	sink2 := &CollectorSink{}

	parent := WithEventSinks(context.Background(), sink1)
	_ = WithEventSinks(parent, sink2)

	assert.Len(t, GetEventSinks(parent), 1)
}
