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
	"errors"
	"fmt"
)

// ErrorCode categorizes an MCP error.
type ErrorCode string

const (
	// ErrorCodeConfigInvalid indicates a single configuration entry
	// failed validation. Always recovered locally: the entry is dropped.
	ErrorCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ErrorCodeConfigUnreadable indicates the whole configuration source
	// is malformed. Recovered locally: treated as no configuration.
	ErrorCodeConfigUnreadable ErrorCode = "CONFIG_UNREADABLE"
	// ErrorCodeConnectFailed indicates a server was unreachable or the
	// handshake failed.
	ErrorCodeConnectFailed ErrorCode = "CONNECT_FAILED"
	// ErrorCodeDiscoveryFailed indicates a server connected but the tool
	// listing failed.
	ErrorCodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	// ErrorCodeSchemaInvalid indicates a single tool's input schema is
	// malformed.
	ErrorCodeSchemaInvalid ErrorCode = "SCHEMA_INVALID"
	// ErrorCodeNameCollision indicates a derived tool name is already
	// registered.
	ErrorCodeNameCollision ErrorCode = "NAME_COLLISION"
	// ErrorCodeTimeout indicates a tool call exceeded its deadline. The
	// connection stays alive.
	ErrorCodeTimeout ErrorCode = "TIMEOUT"
	// ErrorCodeProtocol indicates the server itself reported that the
	// tool invocation failed.
	ErrorCodeProtocol ErrorCode = "PROTOCOL"
	// ErrorCodeTransport indicates the underlying connection broke
	// during a call.
	ErrorCodeTransport ErrorCode = "TRANSPORT"
	// ErrorCodeState indicates an operation was attempted in the wrong
	// connection state. This is a programmer error.
	ErrorCodeState ErrorCode = "STATE"
)

// MCPError is the error type for all failures in this package.
type MCPError struct {
	// Code is the error category.
	Code ErrorCode
	// Server is the name of the server involved, if any.
	Server string
	// Message is the primary error message.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	msg := e.Message
	if e.Server != "" {
		msg = fmt.Sprintf("%s: %s", e.Server, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *MCPError) Unwrap() error {
	return e.Cause
}

// newError creates an MCPError for the given server and code.
func newError(code ErrorCode, server, message string, cause error) *MCPError {
	return &MCPError{
		Code:    code,
		Server:  server,
		Message: message,
		Cause:   cause,
	}
}

// ErrConnectFailed creates an error for a failed connection attempt.
func ErrConnectFailed(server string, cause error) *MCPError {
	return newError(ErrorCodeConnectFailed, server, "failed to connect to MCP server", cause)
}

// ErrDiscoveryFailed creates an error for a failed tool listing.
func ErrDiscoveryFailed(server string, cause error) *MCPError {
	return newError(ErrorCodeDiscoveryFailed, server, "failed to list tools", cause)
}

// ErrCallTimeout creates an error for a tool call that exceeded its deadline.
func ErrCallTimeout(server, tool string, cause error) *MCPError {
	return newError(ErrorCodeTimeout, server, fmt.Sprintf("tool call %s timed out", tool), cause)
}

// ErrToolFailed creates an error for a tool whose execution the server
// reported as failed.
func ErrToolFailed(server, tool, detail string) *MCPError {
	msg := fmt.Sprintf("tool %s failed", tool)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return newError(ErrorCodeProtocol, server, msg, nil)
}

// ErrTransport creates an error for a broken connection.
func ErrTransport(server string, cause error) *MCPError {
	return newError(ErrorCodeTransport, server, "connection to MCP server broke", cause)
}

// ErrBadState creates an error for an operation attempted in the wrong
// connection state.
func ErrBadState(server string, op string, state ConnState) *MCPError {
	return newError(ErrorCodeState, server, fmt.Sprintf("%s called in state %s", op, state), nil)
}

// CodeOf extracts the ErrorCode from an error chain, or "" if the chain
// contains no MCPError.
func CodeOf(err error) ErrorCode {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr.Code
	}
	return ""
}

// IsTimeout reports whether the error chain contains a timeout error.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrorCodeTimeout
}
