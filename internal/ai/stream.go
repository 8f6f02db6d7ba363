package ai

import "context"

// StreamProvider streams assistant content fragments.
// Both channels are closed when the stream ends; at most one error is sent.
type StreamProvider interface {
	StreamChat(ctx context.Context, req ChatRequest) (<-chan string, <-chan error)
}
