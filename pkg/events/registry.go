package events

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// EventDecoder turns a raw payload into a concrete Event. Decoders extend
// NewEventFromJson with event types this package does not define itself.
type EventDecoder func(payload []byte) (Event, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[EventType]EventDecoder{}
)

// RegisterEventDecoder installs a decoder for a custom event type.
// Registering the same type twice is an error.
func RegisterEventDecoder(typ EventType, dec EventDecoder) error {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	if _, exists := decoders[typ]; exists {
		return errors.Errorf("event decoder already registered for %q", typ)
	}
	decoders[typ] = dec
	return nil
}

// RegisterEventFactory installs a json.Unmarshal based decoder that decodes
// payloads into the value returned by factory. The factory must return a
// pointer type.
func RegisterEventFactory(typ EventType, factory func() Event) error {
	return RegisterEventDecoder(typ, func(payload []byte) (Event, error) {
		ev := factory()
		if err := json.Unmarshal(payload, ev); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s event", typ)
		}
		return ev, nil
	})
}

func lookupDecoder(typ EventType) EventDecoder {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	return decoders[typ]
}
