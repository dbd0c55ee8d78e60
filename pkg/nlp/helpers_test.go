package nlp

import (
	"context"
	"errors"
	"sync"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// scriptedClient answers calls from a function and records every request.
type scriptedClient struct {
	mu       sync.Mutex
	requests []*types.ChatRequest
	answer   func(call int, req *types.ChatRequest) (*types.Response, error)
	closed   bool
}

func (s *scriptedClient) Chat(_ context.Context, req *types.ChatRequest) (*types.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	call := len(s.requests)
	s.mu.Unlock()

	if s.answer == nil {
		return &types.Response{Content: "ok", Model: req.Model}, nil
	}
	return s.answer(call, req)
}

func (s *scriptedClient) Close() error {
	s.closed = true
	return nil
}

func (s *scriptedClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedClient) last() *types.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func userRequest(model, content string) *types.ChatRequest {
	return &types.ChatRequest{
		Model:    model,
		Messages: []types.Message{NewUserMessage(content)},
	}
}

func asStatus(err error, target **StatusError) bool {
	return errors.As(err, target)
}
