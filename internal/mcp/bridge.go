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
	"regexp"
	"strings"
)

// toolNamePrefix marks registry names owned by the MCP bridge.
const toolNamePrefix = "mcp_"

// normalizeRe matches characters that are not lowercase alphanumeric or
// underscore.
var normalizeRe = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizeServerName folds a server name to lowercase and replaces
// every character outside [a-z0-9_] with an underscore.
func NormalizeServerName(name string) string {
	return normalizeRe.ReplaceAllString(strings.ToLower(name), "_")
}

// ToolName derives the registry name for a server's tool:
// "mcp_" + normalized server name + "_" + the tool's own name. The
// tool name is kept verbatim so ParseToolName can recover it exactly.
func ToolName(serverName, toolName string) string {
	return toolNamePrefix + NormalizeServerName(serverName) + "_" + toolName
}

// ParseToolName splits a registry name produced by ToolName back into
// its server and tool components. The server component is everything up
// to the first underscore after the "mcp_" marker, so the inversion is
// exact whenever the normalized server name contains no underscore.
// ok is false for names the bridge could not have produced.
func ParseToolName(name string) (serverName, toolName string, ok bool) {
	rest, found := strings.CutPrefix(name, toolNamePrefix)
	if !found {
		return "", "", false
	}
	serverName, toolName, found = strings.Cut(rest, "_")
	if !found || serverName == "" || toolName == "" {
		return "", "", false
	}
	return serverName, toolName, true
}

// FormatResult flattens a tool call's content items into the plain text
// the registry expects: the concatenation of every text-typed item, in
// order. Non-text items are ignored. A result with no text items yields
// the empty string.
func FormatResult(content []ContentItem) string {
	var sb strings.Builder
	for _, item := range content {
		if item.Type == "text" {
			sb.WriteString(item.Text)
		}
	}
	return sb.String()
}
