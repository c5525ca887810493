package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// PrinterFunc returns a watermill handler that renders session events to w.
// Content deltas are streamed as-is, thoughts get a subject marker, and
// tool calls and responses are dumped as YAML.
func PrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventError:
			_, err = fmt.Fprintf(w, "\nerror: %s\n", p_.ErrorString)
			if err != nil {
				return err
			}

		case *EventContent:
			if isFirst && name != "" {
				isFirst = false
				_, err = fmt.Fprintf(w, "\n%s: \n", name)
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(w, "%s", p_.Text)
			if err != nil {
				return err
			}

		case *EventThought:
			if p_.Subject != "" {
				_, err = fmt.Fprintf(w, "\n--- %s ---\n", p_.Subject)
			} else {
				_, err = fmt.Fprintf(w, "\n--- Thinking ---\n")
			}
			if err != nil {
				return err
			}
			if p_.Description != "" {
				if !strings.HasSuffix(p_.Description, "\n") {
					p_.Description += "\n"
				}
				_, err = fmt.Fprintf(w, "%s", p_.Description)
				if err != nil {
					return err
				}
			}

		case *EventToolCallRequest:
			v_, err := yaml.Marshal(p_.ToolCall)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "\n%s\n", v_)
			if err != nil {
				return err
			}

		case *EventToolCallResponse:
			v_, err := yaml.Marshal(p_.ToolCall)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s\n", v_)
			if err != nil {
				return err
			}

		case *EventUserCancelled:
			_, err = fmt.Fprintf(w, "\n[cancelled]\n")
			if err != nil {
				return err
			}

		case *EventFinished:
			_, err = fmt.Fprintf(w, "\n")
			if err != nil {
				return err
			}

		case *EventToolCallConfirmation:
			// rendered by the confirmation UI, not the printer
		}

		return nil
	}
}
