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

import "context"

// ClientProvider is the connection surface the Manager and the tool
// bridge depend on. It exists so tests can substitute fake servers
// without spawning processes or opening sockets.
type ClientProvider interface {
	// Name returns the configured server name.
	Name() string

	// Connect establishes the connection and performs the handshake.
	Connect(ctx context.Context) error

	// State returns the current connection state.
	State() ConnState

	// ListTools retrieves the server's tool definitions.
	ListTools(ctx context.Context) ([]ToolDefinition, error)

	// CallTool invokes a tool and blocks until result, error, or timeout.
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResponse, error)

	// Close shuts down the connection. Idempotent.
	Close() error
}

var _ ClientProvider = (*Client)(nil)
