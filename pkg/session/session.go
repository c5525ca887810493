package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/turns"
	"github.com/google/uuid"
)

// Session owns one conversation: the generator, its history, and the static
// request ingredients (model, system instruction, tool declarations). Each
// SendMessageStream call runs exactly one fresh Turn.
type Session struct {
	generator         generation.ContentGenerator
	history           *History
	sessionID         string
	model             string
	systemInstruction string
	declarations      []generation.ToolDeclaration
	config            *generation.GenerationConfig

	turnSeq int
}

type SessionOption func(*Session)

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.sessionID = id
		}
	}
}

func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.model = model
	}
}

func WithSystemInstruction(instruction string) SessionOption {
	return func(s *Session) {
		s.systemInstruction = instruction
	}
}

func WithToolDeclarations(declarations []generation.ToolDeclaration) SessionOption {
	return func(s *Session) {
		s.declarations = declarations
	}
}

func WithGenerationConfig(config generation.GenerationConfig) SessionOption {
	return func(s *Session) {
		s.config = &config
	}
}

func WithInitialHistory(contents ...generation.Content) SessionOption {
	return func(s *Session) {
		s.history = NewHistory(contents...)
	}
}

func NewSession(generator generation.ContentGenerator, options ...SessionOption) *Session {
	s := &Session{
		generator: generator,
		history:   NewHistory(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Session) SessionID() string {
	return s.sessionID
}

func (s *Session) Model() string {
	return s.model
}

func (s *Session) History() *History {
	return s.history
}

// SendMessageStream runs one exchange: it builds the request from the
// curated history plus the new user parts, streams it through a fresh Turn,
// and fans every event out to both emit and the context's sinks. After a
// completed run the user content and the aggregated model output are
// recorded; an exchange that produced no model output records an empty
// model entry, which is what Curated() later strips.
//
// Authentication errors pass through with the history untouched so the
// caller can re-authenticate and retry.
func (s *Session) SendMessageStream(ctx context.Context, parts []generation.Part, emit func(events.Event)) (*turns.Turn, error) {
	userContent := generation.NewUserContent(parts...)

	contents := append(s.history.Curated(), userContent)
	req := &generation.Request{
		Model:    s.model,
		Contents: contents,
		Tools:    s.declarations,
		Config:   s.config,
	}
	if s.systemInstruction != "" {
		instruction := generation.NewUserContent(generation.NewTextPart(s.systemInstruction))
		req.SystemInstruction = &instruction
	}

	s.turnSeq++
	turn := turns.NewTurn(s.generator, s.sessionID, fmt.Sprintf("%s#%d", s.sessionID, s.turnSeq))

	fanout := func(ev events.Event) {
		if emit != nil {
			emit(ev)
		}
		events.PublishEventToContext(ctx, ev)
	}

	if err := turn.Run(ctx, req, fanout); err != nil {
		return nil, err
	}

	s.history.Add(userContent)
	s.history.Add(aggregateModelOutput(turn.DebugResponses()))
	return turn, nil
}

// aggregateModelOutput condenses the streamed chunks into one model entry:
// consecutive text fragments merge into a single part, function calls keep
// their positions, reasoning stays out of the record.
func aggregateModelOutput(responses []*generation.Response) generation.Content {
	var parts []generation.Part
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, generation.NewTextPart(text.String()))
			text.Reset()
		}
	}

	for _, resp := range responses {
		if resp == nil || len(resp.Candidates) == 0 {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			switch {
			case p.Thought:
			case p.FunctionCall != nil:
				flush()
				parts = append(parts, p)
			case p.Text != "":
				text.WriteString(p.Text)
			}
		}
	}
	flush()

	return generation.Content{Role: generation.RoleModel, Parts: parts}
}
