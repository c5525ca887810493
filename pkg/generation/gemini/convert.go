package gemini

import (
	"encoding/json"
	"math"

	"github.com/go-go-golems/jiminy/pkg/generation"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
)

func convertRole(role string) string {
	switch role {
	case generation.RoleUser:
		return "user"
	case generation.RoleModel:
		return "model"
	case generation.RoleTool:
		// function responses ride under the user role in this API
		return "user"
	default:
		return "user"
	}
}

func convertParts(parts []generation.Part) []genai.Part {
	var out []genai.Part
	for _, p := range parts {
		switch {
		case p.FunctionCall != nil:
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out = append(out, genai.FunctionCall{Name: p.FunctionCall.Name, Args: args})
		case p.FunctionResponse != nil:
			response := p.FunctionResponse.Response
			if response == nil {
				response = map[string]any{}
			}
			out = append(out, genai.FunctionResponse{Name: p.FunctionResponse.Name, Response: response})
		case p.Text != "":
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

func convertContent(c generation.Content) *genai.Content {
	parts := convertParts(c.Parts)
	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: convertRole(c.Role), Parts: parts}
}

func convertGenerationConfig(cfg *generation.GenerationConfig) genai.GenerationConfig {
	out := genai.GenerationConfig{}
	if cfg.Temperature != nil {
		v := float32(*cfg.Temperature)
		out.Temperature = &v
	}
	if cfg.TopP != nil {
		v := float32(*cfg.TopP)
		out.TopP = &v
	}
	if cfg.MaxOutputTokens != nil {
		out.MaxOutputTokens = clampToInt32(*cfg.MaxOutputTokens)
	}
	if cfg.CandidateCount != nil {
		out.CandidateCount = clampToInt32(*cfg.CandidateCount)
	}
	if len(cfg.StopSequences) > 0 {
		out.StopSequences = cfg.StopSequences
	}
	return out
}

func clampToInt32(v int) *int32 {
	var out int32
	if v < 0 {
		log.Warn().Int("requested", v).Msg("negative token limit; clamping to 0")
		out = 0
	} else if v > int(math.MaxInt32) {
		log.Warn().Int("requested", v).Int("clamped_to", int(math.MaxInt32)).Msg("token limit exceeds int32; clamping")
		out = math.MaxInt32
	} else {
		v64 := int64(v)
		out = int32(v64) // #nosec G115
	}
	return &out
}

// convertSchema converts an invopop jsonschema.Schema to the Gemini schema
// shape, recursing through object properties and array items.
func convertSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	case "array":
		gs.Type = genai.TypeArray
		if s.Items != nil {
			gs.Items = convertSchema(s.Items)
		}
	case "object", "":
		gs.Type = genai.TypeObject
		if s.Properties != nil {
			props := map[string]*genai.Schema{}
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				props[pair.Key] = convertSchema(pair.Value)
			}
			if len(props) > 0 {
				gs.Properties = props
			}
		}
		if len(s.Required) > 0 {
			gs.Required = s.Required
		}
	default:
		gs.Type = genai.TypeObject
	}
	for _, e := range s.Enum {
		if str, ok := e.(string); ok {
			gs.Enum = append(gs.Enum, str)
		}
	}
	return gs
}

func convertFinishReason(fr genai.FinishReason) generation.FinishReason {
	switch fr {
	case genai.FinishReasonStop:
		return generation.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return generation.FinishReasonMaxTokens
	case genai.FinishReasonSafety:
		return generation.FinishReasonSafety
	case genai.FinishReasonRecitation:
		return generation.FinishReasonRecitation
	case genai.FinishReasonOther:
		return generation.FinishReasonOther
	default:
		return generation.FinishReasonUnspecified
	}
}

func convertResponseParts(parts []genai.Part) []generation.Part {
	var out []generation.Part
	for _, p := range parts {
		switch v := p.(type) {
		case genai.Text:
			out = append(out, generation.Part{Text: string(v)})
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			out = append(out, generation.Part{FunctionCall: &generation.FunctionCall{
				Name: v.Name,
				Args: args,
			}})
		default:
			// unsupported part kinds (blobs, files) are logged and skipped
			b, _ := json.Marshal(p)
			log.Debug().RawJSON("part", b).Msg("skipping unsupported gemini part")
		}
	}
	return out
}

func convertResponse(resp *genai.GenerateContentResponse, model string) *generation.Response {
	out := &generation.Response{ModelVersion: model}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		c := generation.Candidate{
			Index:        int(cand.Index),
			FinishReason: convertFinishReason(cand.FinishReason),
		}
		if cand.Content != nil {
			c.Content = generation.Content{
				Role:  generation.RoleModel,
				Parts: convertResponseParts(cand.Content.Parts),
			}
		}
		out.Candidates = append(out.Candidates, c)
	}
	if um := resp.UsageMetadata; um != nil {
		out.UsageMetadata = &generation.UsageMetadata{
			PromptTokenCount:        int(um.PromptTokenCount),
			CandidatesTokenCount:    int(um.CandidatesTokenCount),
			CachedContentTokenCount: int(um.CachedContentTokenCount),
			TotalTokenCount:         int(um.TotalTokenCount),
		}
	}
	return out
}

// wrapGeminiError classifies SDK errors into the shared error hierarchy so
// callers can distinguish authentication failures and read status codes.
func wrapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	if aerr, ok := apierror.FromError(err); ok {
		code := aerr.HTTPCode()
		if code <= 0 {
			if st := aerr.GRPCStatus(); st != nil {
				code = httpCodeFromGRPC(st.Code())
			}
		}
		if code == 401 || code == 403 {
			return generation.NewAuthenticationError(err.Error(), code, err)
		}
		return generation.NewAPIError(err.Error(), code, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 401 || gerr.Code == 403 {
			return generation.NewAuthenticationError(gerr.Message, gerr.Code, err)
		}
		return generation.NewAPIError(gerr.Message, gerr.Code, err)
	}

	return generation.WrapAPIError(err, "gemini request failed")
}

func httpCodeFromGRPC(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return 400
	case codes.Unauthenticated:
		return 401
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.ResourceExhausted:
		return 429
	case codes.Internal:
		return 500
	case codes.Unavailable:
		return 503
	case codes.DeadlineExceeded:
		return 504
	default:
		return 0
	}
}
