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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeServerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"files", "files"},
		{"My Server", "my_server"},
		{"API-v2", "api_v2"},
		{"Søk", "s_k"},
		{"already_fine_123", "already_fine_123"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeServerName(tt.in))
		})
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "mcp_files_read_file", ToolName("files", "read_file"))
	assert.Equal(t, "mcp_my_server_search", ToolName("My Server", "search"))
}

func TestParseToolName(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		// Exact inversion holds whenever the normalized server name
		// contains no underscore.
		name := ToolName("files", "read_file")
		server, tool, ok := ParseToolName(name)
		require.True(t, ok)
		assert.Equal(t, "files", server)
		assert.Equal(t, "read_file", tool)
	})

	t.Run("tool name underscores survive", func(t *testing.T) {
		server, tool, ok := ParseToolName("mcp_search_find_in_files")
		require.True(t, ok)
		assert.Equal(t, "search", server)
		assert.Equal(t, "find_in_files", tool)
	})

	t.Run("rejects foreign names", func(t *testing.T) {
		for _, name := range []string{
			"read_file",
			"mcp",
			"mcp_",
			"mcp_files",
			"mcp__tool",
			"",
		} {
			_, _, ok := ParseToolName(name)
			assert.False(t, ok, "name %q", name)
		}
	})
}

func TestFormatResult(t *testing.T) {
	t.Run("concatenates text items in order", func(t *testing.T) {
		got := FormatResult([]ContentItem{
			{Type: "text", Text: "first"},
			{Type: "text", Text: " second"},
		})
		assert.Equal(t, "first second", got)
	})

	t.Run("skips non-text items", func(t *testing.T) {
		got := FormatResult([]ContentItem{
			{Type: "image", Data: "aGVsbG8=", MimeType: "image/png"},
			{Type: "text", Text: "caption"},
		})
		assert.Equal(t, "caption", got)
	})

	t.Run("empty content yields empty string", func(t *testing.T) {
		assert.Equal(t, "", FormatResult(nil))
		assert.Equal(t, "", FormatResult([]ContentItem{{Type: "image", Data: "x"}}))
	})
}
