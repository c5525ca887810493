package generation

import (
	"context"
)

// ResponseStream is a lazy, finite sequence of response chunks. Recv returns
// io.EOF once the stream is exhausted; a stream cannot be restarted or
// replayed. Callers drive pacing: the next chunk is not fetched until Recv is
// called again.
type ResponseStream interface {
	Recv() (*Response, error)
	Close() error
}

// ContentGenerator is the uniform interface over heterogeneous LLM backends.
// Implementations normalize their provider's wire format into the shared
// Response shape and surface failures as *APIError (or *AuthenticationError
// for unauthorized conditions).
type ContentGenerator interface {
	// GenerateContent performs a non-streaming generation call.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// GenerateContentStream opens a streaming generation call. The returned
	// stream must be drained or closed by the caller.
	GenerateContentStream(ctx context.Context, req *Request) (ResponseStream, error)

	// CountTokens reports the token footprint of the request's contents.
	CountTokens(ctx context.Context, req *Request) (*TokenCount, error)

	// EmbedContent computes an embedding vector for the request text.
	EmbedContent(ctx context.Context, req *EmbedRequest) (*Embedding, error)
}
