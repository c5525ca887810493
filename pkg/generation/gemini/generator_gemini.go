package gemini

import (
	"context"
	"io"

	"github.com/go-go-golems/jiminy/pkg/generation"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultEmbeddingModel is used when an embedding request does not name a model.
const DefaultEmbeddingModel = "text-embedding-004"

// GeminiGenerator implements generation.ContentGenerator against the Gemini API.
type GeminiGenerator struct {
	apiKey  string
	baseURL string
}

type Option func(*GeminiGenerator)

func WithAPIKey(apiKey string) Option {
	return func(g *GeminiGenerator) {
		g.apiKey = apiKey
	}
}

func WithBaseURL(baseURL string) Option {
	return func(g *GeminiGenerator) {
		g.baseURL = baseURL
	}
}

func NewGeminiGenerator(options ...Option) (*GeminiGenerator, error) {
	ret := &GeminiGenerator{}
	for _, o := range options {
		o(ret)
	}
	if ret.apiKey == "" {
		return nil, errors.New("missing gemini API key")
	}
	return ret, nil
}

func (g *GeminiGenerator) newClient(ctx context.Context) (*genai.Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.baseURL != "" {
		opts = append(opts, option.WithEndpoint(g.baseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return client, nil
}

// buildModel configures a generative model from the request: generation
// config, system instruction and tool declarations.
func (g *GeminiGenerator) buildModel(client *genai.Client, req *generation.Request) *genai.GenerativeModel {
	model := client.GenerativeModel(req.Model)

	if cfg := req.Config; cfg != nil {
		model.GenerationConfig = convertGenerationConfig(cfg)
	}

	if req.SystemInstruction != nil && !req.SystemInstruction.IsEmpty() {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction.Text())},
		}
	}

	if len(req.Tools) > 0 {
		var toolDecls []*genai.FunctionDeclaration
		for _, td := range req.Tools {
			fd := &genai.FunctionDeclaration{
				Name:        td.Name,
				Description: td.Description,
			}
			if ps := convertSchema(td.Parameters); ps != nil {
				fd.Parameters = ps
			}
			toolDecls = append(toolDecls, fd)
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: toolDecls}}
		log.Debug().Int("gemini_tool_count", len(toolDecls)).Msg("Added tools to Gemini model")
	}

	return model
}

// splitContents separates the request history from the message to send. The
// chat session carries everything but the last content; the last content's
// parts become the outgoing message.
func splitContents(req *generation.Request) ([]*genai.Content, []genai.Part, error) {
	if len(req.Contents) == 0 {
		return nil, nil, errors.New("request has no contents")
	}
	last := req.Contents[len(req.Contents)-1]
	lastParts := convertParts(last.Parts)
	if len(lastParts) == 0 {
		return nil, nil, errors.New("last content has no parts")
	}
	var history []*genai.Content
	for _, c := range req.Contents[:len(req.Contents)-1] {
		if gc := convertContent(c); gc != nil {
			history = append(history, gc)
		}
	}
	return history, lastParts, nil
}

func (g *GeminiGenerator) GenerateContent(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	model := g.buildModel(client, req)
	history, lastParts, err := splitContents(req)
	if err != nil {
		return nil, err
	}

	session := model.StartChat()
	session.History = history

	log.Debug().Str("model", req.Model).Int("num_contents", len(req.Contents)).Msg("Gemini GenerateContent")
	resp, err := session.SendMessage(ctx, lastParts...)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	return convertResponse(resp, req.Model), nil
}

func (g *GeminiGenerator) GenerateContentStream(ctx context.Context, req *generation.Request) (generation.ResponseStream, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}

	model := g.buildModel(client, req)
	history, lastParts, err := splitContents(req)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	session := model.StartChat()
	session.History = history

	log.Debug().Str("model", req.Model).Int("num_contents", len(req.Contents)).Msg("Gemini GenerateContentStream")
	iter := session.SendMessageStream(ctx, lastParts...)
	return &geminiStream{iter: iter, client: client, model: req.Model}, nil
}

func (g *GeminiGenerator) CountTokens(ctx context.Context, req *generation.Request) (*generation.TokenCount, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	model := g.buildModel(client, req)
	var parts []genai.Part
	for _, c := range req.Contents {
		parts = append(parts, convertParts(c.Parts)...)
	}
	if len(parts) == 0 {
		return &generation.TokenCount{}, nil
	}

	resp, err := model.CountTokens(ctx, parts...)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	return &generation.TokenCount{TotalTokens: int(resp.TotalTokens)}, nil
}

func (g *GeminiGenerator) EmbedContent(ctx context.Context, req *generation.EmbedRequest) (*generation.Embedding, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	modelName := req.Model
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	em := client.EmbeddingModel(modelName)
	resp, err := em.EmbedContent(ctx, genai.Text(req.Text))
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("embedding response has no values")
	}
	return &generation.Embedding{Values: resp.Embedding.Values}, nil
}

// geminiStream adapts the SDK iterator to generation.ResponseStream. The
// client is owned by the stream and released on Close.
type geminiStream struct {
	iter   *genai.GenerateContentResponseIterator
	client *genai.Client
	model  string
}

func (s *geminiStream) Recv() (*generation.Response, error) {
	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) || errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	return convertResponse(resp, s.model), nil
}

func (s *geminiStream) Close() error {
	return s.client.Close()
}

var _ generation.ContentGenerator = (*GeminiGenerator)(nil)
var _ generation.ResponseStream = (*geminiStream)(nil)
