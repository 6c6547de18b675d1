// Copyright 2025 Squire Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is an in-memory ClientProvider. It lets manager and
// adapter tests exercise connection and discovery outcomes without
// spawning processes or opening sockets.
type fakeClient struct {
	name string

	connectErr error
	listErr    error
	tools      []ToolDefinition

	callErr  error
	response *ToolCallResponse
	closeErr error

	mu     sync.Mutex
	state  ConnState
	calls  []string
	closes int
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{name: name, state: StateUnconnected}
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		f.state = StateFailed
		return f.connectErr
	}
	f.state = StateConnected
	return nil
}

func (f *fakeClient) State() ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeClient) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tools, nil
}

func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.response != nil {
		return f.response, nil
	}
	return &ToolCallResponse{
		Content: []ContentItem{{Type: "text", Text: "ok"}},
	}, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.state = StateClosed
	return f.closeErr
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func textResponse(parts ...string) *ToolCallResponse {
	resp := &ToolCallResponse{}
	for _, p := range parts {
		resp.Content = append(resp.Content, ContentItem{Type: "text", Text: p})
	}
	return resp
}
