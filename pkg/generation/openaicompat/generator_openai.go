package openaicompat

import (
	"context"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultEmbeddingModel is used when an embedding request does not name a model.
const DefaultEmbeddingModel = "text-embedding-3-small"

// OpenAICompatGenerator implements generation.ContentGenerator against any
// endpoint speaking the OpenAI chat completion protocol.
type OpenAICompatGenerator struct {
	apiKey  string
	baseURL string
}

type Option func(*OpenAICompatGenerator)

func WithAPIKey(apiKey string) Option {
	return func(g *OpenAICompatGenerator) {
		g.apiKey = apiKey
	}
}

func WithBaseURL(baseURL string) Option {
	return func(g *OpenAICompatGenerator) {
		g.baseURL = baseURL
	}
}

func NewOpenAICompatGenerator(options ...Option) (*OpenAICompatGenerator, error) {
	ret := &OpenAICompatGenerator{}
	for _, o := range options {
		o(ret)
	}
	if ret.apiKey == "" {
		return nil, errors.New("missing API key")
	}
	return ret, nil
}

func (g *OpenAICompatGenerator) client() *go_openai.Client {
	config := go_openai.DefaultConfig(g.apiKey)
	if g.baseURL != "" {
		config.BaseURL = g.baseURL
	}
	return go_openai.NewClientWithConfig(config)
}

func (g *OpenAICompatGenerator) GenerateContent(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	chatReq, err := makeChatCompletionRequest(req, false)
	if err != nil {
		return nil, err
	}

	resp, err := g.client().CreateChatCompletion(ctx, *chatReq)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	return convertChatCompletionResponse(&resp), nil
}

func (g *OpenAICompatGenerator) GenerateContentStream(ctx context.Context, req *generation.Request) (generation.ResponseStream, error) {
	chatReq, err := makeChatCompletionRequest(req, true)
	if err != nil {
		return nil, err
	}

	stream, err := g.client().CreateChatCompletionStream(ctx, *chatReq)
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("streaming request failed")
		return nil, wrapOpenAIError(err)
	}
	return newOpenAIStream(stream, req.Model), nil
}

// CountTokens tokenizes the request locally; counts approximate what the
// provider would report since message framing overhead is not modeled.
func (g *OpenAICompatGenerator) CountTokens(_ context.Context, req *generation.Request) (*generation.TokenCount, error) {
	codec, err := codecForModel(req.Model)
	if err != nil {
		return nil, err
	}

	total := 0
	count := func(text string) error {
		if text == "" {
			return nil
		}
		ids, _, err := codec.Encode(text)
		if err != nil {
			return errors.Wrap(err, "failed to tokenize text")
		}
		total += len(ids)
		return nil
	}

	if req.SystemInstruction != nil {
		if err := count(req.SystemInstruction.Text()); err != nil {
			return nil, err
		}
	}
	for _, c := range req.Contents {
		if err := count(c.Text()); err != nil {
			return nil, err
		}
		for _, p := range c.Parts {
			if p.FunctionCall != nil {
				if err := count(p.FunctionCall.Name); err != nil {
					return nil, err
				}
			}
		}
	}

	return &generation.TokenCount{TotalTokens: total}, nil
}

// codecForModel resolves a tiktoken codec for the model, falling back to
// cl100k_base for models the tokenizer library does not know.
func codecForModel(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}
	log.Debug().Str("model", model).Msg("unknown tokenizer model, falling back to cl100k_base")
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fallback tokenizer")
	}
	return codec, nil
}

func (g *OpenAICompatGenerator) EmbedContent(ctx context.Context, req *generation.EmbedRequest) (*generation.Embedding, error) {
	model := req.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	resp, err := g.client().CreateEmbeddings(ctx, go_openai.EmbeddingRequest{
		Input: []string{req.Text},
		Model: go_openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}
	return &generation.Embedding{Values: resp.Data[0].Embedding}, nil
}

var _ generation.ContentGenerator = (*OpenAICompatGenerator)(nil)
