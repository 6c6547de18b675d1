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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming an explicit
// configuration file path. It takes precedence over every other
// resolution step.
const EnvConfigPath = "SQUIRE_MCP_CONFIG"

// configFileName is the configuration file looked up inside a workspace.
const configFileName = "mcp.yaml"

// DefaultCallTimeout applies when an entry does not set its own timeout.
const DefaultCallTimeout = 30 * time.Second

// Transport selects how a server is reached.
type Transport string

const (
	// TransportStdio spawns the server as a child process and speaks
	// MCP over its standard input/output.
	TransportStdio Transport = "stdio"
	// TransportHTTP connects to a remote server over a persistent HTTP
	// event stream.
	TransportHTTP Transport = "http"
)

// ServerConfig describes one configured MCP server. Instances are
// created by LoadConfig and never mutated afterwards.
type ServerConfig struct {
	// Name is the unique identifier for this server. It namespaces the
	// bridged tool names.
	Name string

	// Transport selects stdio or http.
	Transport Transport

	// Command is the executable to run (stdio only).
	Command string

	// Args are the command-line arguments (stdio only).
	Args []string

	// Env are environment variables in KEY=VALUE form (stdio only).
	Env []string

	// URL is the endpoint of the event-stream server (http only).
	URL string

	// Headers are sent with every request to URL (http only).
	Headers map[string]string

	// Timeout is the default deadline for tool calls.
	Timeout time.Duration

	// IncludeTools and ExcludeTools filter which discovered tools are
	// bridged. Patterns use glob syntax and match the server-side tool
	// name. An empty include list means all tools.
	IncludeTools []string
	ExcludeTools []string
}

// configFile is the on-disk document: a mapping from server name to
// entry, plus optional defaults.
type configFile struct {
	Servers  map[string]yaml.Node `yaml:"servers"`
	Defaults configDefaults       `yaml:"defaults"`
}

type configDefaults struct {
	Timeout int `yaml:"timeout"`
}

// serverEntry mirrors one entry in the servers mapping.
type serverEntry struct {
	Transport    string            `yaml:"transport"`
	Command      string            `yaml:"command"`
	Args         []string          `yaml:"args"`
	Env          []string          `yaml:"env"`
	URL          string            `yaml:"url"`
	Headers      map[string]string `yaml:"headers"`
	Timeout      *int              `yaml:"timeout"`
	IncludeTools []string          `yaml:"include_tools"`
	ExcludeTools []string          `yaml:"exclude_tools"`
}

// validate checks a single entry. Invalid entries are dropped by the
// loader; they never abort the load.
func (e *serverEntry) validate() error {
	switch Transport(e.Transport) {
	case TransportStdio:
		if e.Command == "" {
			return fmt.Errorf("transport %q requires command", e.Transport)
		}
	case TransportHTTP:
		if e.URL == "" {
			return fmt.Errorf("transport %q requires url", e.Transport)
		}
	case "":
		return fmt.Errorf("transport is required")
	default:
		return fmt.Errorf("unknown transport %q", e.Transport)
	}

	if e.Timeout != nil && *e.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive number of seconds")
	}

	for i, env := range e.Env {
		if !strings.Contains(env, "=") {
			return fmt.Errorf("env[%d]: must be in KEY=VALUE format", i)
		}
	}

	return nil
}

// toServerConfig converts a validated entry to an immutable ServerConfig.
func (e *serverEntry) toServerConfig(name string, defaults configDefaults) ServerConfig {
	timeout := DefaultCallTimeout
	if e.Timeout != nil {
		timeout = time.Duration(*e.Timeout) * time.Second
	} else if defaults.Timeout > 0 {
		timeout = time.Duration(defaults.Timeout) * time.Second
	}

	return ServerConfig{
		Name:         name,
		Transport:    Transport(e.Transport),
		Command:      e.Command,
		Args:         e.Args,
		Env:          e.Env,
		URL:          e.URL,
		Headers:      e.Headers,
		Timeout:      timeout,
		IncludeTools: e.IncludeTools,
		ExcludeTools: e.ExcludeTools,
	}
}

// ResolveConfigPath returns the first existing configuration file from
// the resolution order: the SQUIRE_MCP_CONFIG environment variable, the
// explicit path parameter, {workspaceRoot}/.squire/mcp.yaml, and finally
// ~/.config/squire/mcp.yaml. The second return value is false when no
// source exists anywhere, which is not an error.
func ResolveConfigPath(explicitPath, workspaceRoot string) (string, bool) {
	var candidates []string

	if p := os.Getenv(EnvConfigPath); p != "" {
		candidates = append(candidates, p)
	}
	if explicitPath != "" {
		candidates = append(candidates, explicitPath)
	}
	if workspaceRoot != "" {
		candidates = append(candidates, filepath.Join(workspaceRoot, ".squire", configFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "squire", configFileName))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// LoadConfig loads server configurations from the first source found in
// the resolution order. A missing configuration yields an empty slice.
// A source that is not valid YAML at the top level also yields an empty
// slice: a broken MCP configuration must never prevent the agent from
// starting. Individual invalid entries are dropped with a warning and
// do not affect their siblings.
func LoadConfig(explicitPath, workspaceRoot string, logger *slog.Logger) []ServerConfig {
	if logger == nil {
		logger = slog.Default()
	}

	path, found := ResolveConfigPath(explicitPath, workspaceRoot)
	if !found {
		logger.Debug("no mcp configuration found")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read mcp configuration", "path", path, "error", err)
		return nil
	}

	configs := ParseConfig(data, logger)
	logger.Debug("loaded mcp configuration", "path", path, "servers", len(configs))
	return configs
}

// ParseConfig parses a configuration document. Entries are validated
// independently; invalid entries are logged and skipped. The returned
// slice is sorted by server name for deterministic connection order.
func ParseConfig(data []byte, logger *slog.Logger) []ServerConfig {
	if logger == nil {
		logger = slog.Default()
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Error("mcp configuration is not valid YAML, ignoring it", "error", err)
		return nil
	}

	configs := make([]ServerConfig, 0, len(file.Servers))
	for name, node := range file.Servers {
		if name == "" {
			logger.Warn("skipping mcp server with empty name")
			continue
		}

		var entry serverEntry
		if err := node.Decode(&entry); err != nil {
			logger.Warn("skipping invalid mcp server entry", "server", name, "error", err)
			continue
		}
		if err := entry.validate(); err != nil {
			logger.Warn("skipping invalid mcp server entry", "server", name, "error", err)
			continue
		}

		configs = append(configs, entry.toServerConfig(name, file.Defaults))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}
