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
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/squire-dev/squire/pkg/tools"
)

// BridgeTools discovers the tools of a connected server and registers
// them on the given registry under collision-free names. Each registered
// handler closes over the client and the server-side tool name; the
// client stays owned by the Manager.
//
// The include and exclude lists hold glob patterns matched against the
// server-side tool name. A non-empty include list bridges only matching
// tools; exclude then removes matches. Both empty bridges everything.
//
// A tool with a malformed input schema is dropped with a warning; its
// siblings are still registered. A name collision with an existing
// registry entry drops the remote tool, never the existing one.
// BridgeTools returns the number of tools registered.
func BridgeTools(ctx context.Context, client ClientProvider, registry *tools.Registry, include, exclude []string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serverName := client.Name()

	defs, err := client.ListTools(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, td := range defs {
		if !matchesFilters(td.Name, include, exclude) {
			logger.Debug("mcp tool filtered out", "server", serverName, "tool", td.Name)
			continue
		}

		if err := validateSchema(td.InputSchema); err != nil {
			logger.Warn("skipping mcp tool with invalid schema",
				"server", serverName,
				"tool", td.Name,
				"error", err,
			)
			continue
		}

		entry := bridgeTool(client, td)
		if err := registry.Register(entry); err != nil {
			if errors.Is(err, tools.ErrToolExists) {
				logger.Warn("mcp tool name collides with existing tool, dropping it",
					"server", serverName,
					"tool", td.Name,
					"name", entry.Name,
				)
			} else {
				logger.Warn("failed to register mcp tool",
					"server", serverName,
					"tool", td.Name,
					"error", err,
				)
			}
			continue
		}
		count++

		logger.Debug("bridged mcp tool",
			"server", serverName,
			"tool", td.Name,
			"name", entry.Name,
		)
	}

	return count, nil
}

// bridgeTool builds the registry entry for one remote tool. The handler
// holds a non-owning reference to the client: it never closes it, and
// the client's own state check rejects calls once the connection is
// gone.
func bridgeTool(client ClientProvider, td ToolDefinition) *tools.Tool {
	serverName := client.Name()
	remoteName := td.Name

	return &tools.Tool{
		Name:        ToolName(serverName, remoteName),
		Description: fmt.Sprintf("[mcp:%s] %s", serverName, td.Description),
		InputSchema: []byte(td.InputSchema),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			start := time.Now()
			resp, err := client.CallTool(ctx, remoteName, args)
			if err != nil {
				observeToolCall(serverName, remoteName, outcomeOf(err), time.Since(start))
				return "", err
			}
			if resp.IsError {
				observeToolCall(serverName, remoteName, "tool_error", time.Since(start))
				return "", ErrToolFailed(serverName, remoteName, FormatResult(resp.Content))
			}
			observeToolCall(serverName, remoteName, "ok", time.Since(start))
			return FormatResult(resp.Content), nil
		},
	}
}

// matchesFilters applies the include/exclude glob patterns to a
// server-side tool name. Patterns that fail to compile are treated as
// non-matching.
func matchesFilters(name string, include, exclude []string) bool {
	if len(include) > 0 {
		matched := false
		for _, pattern := range include {
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range exclude {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return false
		}
	}
	return true
}

// validateSchema checks that a tool's input schema is a well-formed
// JSON object.
func validateSchema(schema json.RawMessage) error {
	if len(schema) == 0 {
		return fmt.Errorf("schema is empty")
	}
	var obj map[string]any
	if err := json.Unmarshal(schema, &obj); err != nil {
		return fmt.Errorf("schema is not a JSON object: %w", err)
	}
	return nil
}

// outcomeOf maps a call error onto a metrics label.
func outcomeOf(err error) string {
	switch CodeOf(err) {
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeTransport:
		return "transport_error"
	default:
		return "error"
	}
}
