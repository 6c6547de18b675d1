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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"syscall"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ConnState is the lifecycle state of a Client's connection.
type ConnState string

const (
	// StateUnconnected is the initial state before Connect.
	StateUnconnected ConnState = "unconnected"
	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting ConnState = "connecting"
	// StateConnected indicates the handshake completed and the
	// connection is usable.
	StateConnected ConnState = "connected"
	// StateClosing indicates Close is in progress.
	StateClosing ConnState = "closing"
	// StateClosed is terminal: the connection was shut down.
	StateClosed ConnState = "closed"
	// StateFailed is terminal: the connection attempt failed, or the
	// transport broke mid-call. Failed servers are never retried within
	// one Manager lifetime.
	StateFailed ConnState = "failed"
)

// Client owns exactly one connection to one MCP server. It wraps the
// protocol client behind the four operations the rest of the system
// needs: connect, list tools, call a tool, close. The transport (child
// process vs. HTTP event stream) is selected by the configuration and
// invisible to callers.
type Client struct {
	config ServerConfig
	logger *slog.Logger

	mu      sync.Mutex
	state   ConnState
	lastErr error
	proto   *mcpclient.Client
}

// NewClient creates a client for the given server. No I/O happens until
// Connect.
func NewClient(config ServerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		logger: logger.With("server", config.Name),
		state:  StateUnconnected,
	}
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.config.Name
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that moved the client into StateFailed,
// or nil.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// setState transitions the connection state under the lock.
func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail records err and moves the client into the terminal failed state.
func (c *Client) fail(err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.mu.Unlock()
}

// Connect establishes the connection and performs the MCP handshake.
// For stdio transports this spawns the child process; for http it opens
// the event stream. On failure the client moves to StateFailed and the
// returned error wraps the cause. Connect is only valid from
// StateUnconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnconnected {
		state := c.state
		c.mu.Unlock()
		return ErrBadState(c.config.Name, "Connect", state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	proto, err := c.dial()
	if err != nil {
		wrapped := ErrConnectFailed(c.config.Name, err)
		c.fail(wrapped)
		return wrapped
	}

	if err := c.handshake(ctx, proto); err != nil {
		_ = proto.Close()
		wrapped := ErrConnectFailed(c.config.Name, err)
		c.fail(wrapped)
		return wrapped
	}

	c.mu.Lock()
	c.proto = proto
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Debug("mcp server connected", "transport", c.config.Transport)
	return nil
}

// dial constructs the protocol client for the configured transport.
func (c *Client) dial() (*mcpclient.Client, error) {
	switch c.config.Transport {
	case TransportStdio:
		return mcpclient.NewStdioMCPClient(c.config.Command, c.config.Env, c.config.Args...)
	case TransportHTTP:
		return mcpclient.NewSSEMCPClient(c.config.URL, transport.WithHeaders(c.config.Headers))
	default:
		return nil, fmt.Errorf("unknown transport %q", c.config.Transport)
	}
}

// handshake starts the transport and sends the initialize request.
func (c *Client) handshake(ctx context.Context, proto *mcpclient.Client) error {
	if err := proto.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "squire",
				Version: "0.1.0",
			},
		},
	}

	if _, err := proto.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// connected returns the protocol client if the connection is usable.
func (c *Client) connected(op string) (*mcpclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil, ErrBadState(c.config.Name, op, c.state)
	}
	return c.proto, nil
}

// ListTools retrieves the tool definitions exposed by the server. It is
// only valid while connected.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	proto, err := c.connected("ListTools")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result, err := callSync(ctx, func(ctx context.Context) (*mcp.ListToolsResult, error) {
		return proto.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, ErrDiscoveryFailed(c.config.Name, err)
	}

	tools := make([]ToolDefinition, 0, len(result.Tools))
	for _, tool := range result.Tools {
		schema, err := inputSchemaBytes(tool)
		if err != nil {
			return nil, ErrDiscoveryFailed(c.config.Name, err)
		}
		tools = append(tools, ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	return tools, nil
}

// inputSchemaBytes extracts the raw JSON Schema from a protocol tool.
func inputSchemaBytes(tool mcp.Tool) (json.RawMessage, error) {
	if len(tool.RawInputSchema) > 0 {
		return json.RawMessage(tool.RawInputSchema), nil
	}

	toolBytes, err := tool.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal tool %s: %w", tool.Name, err)
	}
	var toolMap map[string]json.RawMessage
	if err := json.Unmarshal(toolBytes, &toolMap); err != nil {
		return nil, fmt.Errorf("unmarshal tool %s: %w", tool.Name, err)
	}
	return toolMap["inputSchema"], nil
}

// CallTool invokes a tool on the server and blocks until the call
// completes, fails, or exceeds the configured timeout. A timed-out call
// is abandoned without tearing down the connection; other in-flight
// calls to the same server are unaffected. A broken transport moves the
// client out of StateConnected so later calls fail fast.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResponse, error) {
	proto, err := c.connected("CallTool")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := callSync(ctx, func(ctx context.Context) (*mcp.CallToolResult, error) {
		return proto.CallTool(ctx, req)
	})
	if err != nil {
		return nil, c.classifyCallError(name, err)
	}

	response := &ToolCallResponse{
		IsError: result.IsError,
		Content: make([]ContentItem, 0, len(result.Content)),
	}
	for _, content := range result.Content {
		response.Content = append(response.Content, convertContent(content))
	}

	return response, nil
}

// classifyCallError maps a raw call failure onto the error taxonomy.
func (c *Client) classifyCallError(tool string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCallTimeout(c.config.Name, tool, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNRESET):
		// The connection itself broke. Later calls must fail fast
		// instead of writing into a dead stream.
		wrapped := ErrTransport(c.config.Name, err)
		c.fail(wrapped)
		return wrapped
	default:
		return newError(ErrorCodeProtocol, c.config.Name, fmt.Sprintf("tool call %s failed", tool), err)
	}
}

// convertContent converts a protocol content item into the package's
// transport-neutral form.
func convertContent(content mcp.Content) ContentItem {
	if textContent, ok := mcp.AsTextContent(content); ok {
		return ContentItem{Type: textContent.Type, Text: textContent.Text}
	}
	if imageContent, ok := mcp.AsImageContent(content); ok {
		return ContentItem{
			Type:     imageContent.Type,
			Data:     imageContent.Data,
			MimeType: imageContent.MIMEType,
		}
	}

	// Unknown content kinds round-trip through JSON so at least the
	// type and any text survive.
	item := ContentItem{}
	raw, err := json.Marshal(content)
	if err != nil {
		return item
	}
	_ = json.Unmarshal(raw, &item)
	return item
}

// Ping checks whether the server is still responsive.
func (c *Client) Ping(ctx context.Context) error {
	proto, err := c.connected("Ping")
	if err != nil {
		return err
	}
	return proto.Ping(ctx)
}

// Close shuts down the connection. It is idempotent: closing a client
// that never connected, already closed, or failed is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	proto := c.proto
	state := c.state
	if state == StateClosed || state == StateClosing {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	c.proto = nil
	c.mu.Unlock()

	var err error
	if proto != nil {
		err = proto.Close()
	}

	c.setState(StateClosed)
	if err != nil {
		return fmt.Errorf("close %s: %w", c.config.Name, err)
	}
	return nil
}
