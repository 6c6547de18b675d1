package mcp

import (
	"encoding/json"
)

// ToolDefinition represents an MCP tool as reported by a server's
// tools/list response.
type ToolDefinition struct {
	// Name is the tool's identifier, unique within its server.
	Name string `json:"name"`

	// Description explains what the tool does.
	Description string `json:"description"`

	// InputSchema defines the expected input parameters using JSON Schema.
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolCallResponse represents the result of an MCP tool invocation.
type ToolCallResponse struct {
	// Content contains the tool's output items.
	Content []ContentItem `json:"content"`

	// IsError indicates the server executed the tool but the tool
	// itself reported failure.
	IsError bool `json:"isError,omitempty"`
}

// ContentItem represents a piece of content in an MCP response.
type ContentItem struct {
	// Type is the content type (text, image, resource).
	Type string `json:"type"`

	// Text is the text content (for type="text").
	Text string `json:"text,omitempty"`

	// Data is the base64-encoded data (for type="image").
	Data string `json:"data,omitempty"`

	// MimeType is the MIME type for binary content.
	MimeType string `json:"mimeType,omitempty"`
}
