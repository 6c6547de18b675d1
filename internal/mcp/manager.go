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
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/squire-dev/squire/pkg/tools"
)

// Manager orchestrates the MCP client lifecycle: loading configuration,
// connecting to every configured server, bridging discovered tools into
// the registry, and tearing everything down at shutdown. It exclusively
// owns the clients it creates; nothing else may close them.
type Manager struct {
	logger        *slog.Logger
	explicitPath  string
	workspaceRoot string

	// dial builds the client for one server. Tests replace it to
	// substitute fakes for real transports.
	dial func(config ServerConfig, logger *slog.Logger) ClientProvider

	mu        sync.RWMutex
	clients   map[string]ClientProvider
	toolCount map[string]int
}

// ManagerConfig configures the MCP manager.
type ManagerConfig struct {
	// Logger is used for structured logging (optional).
	Logger *slog.Logger

	// ConfigPath is an explicit configuration file path. The
	// SQUIRE_MCP_CONFIG environment variable still takes precedence.
	ConfigPath string

	// WorkspaceRoot is the workspace directory searched for
	// .squire/mcp.yaml.
	WorkspaceRoot string
}

// NewManager creates an MCP manager. No connections are made until
// Initialize.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		logger:        logger,
		explicitPath:  cfg.ConfigPath,
		workspaceRoot: cfg.WorkspaceRoot,
		dial: func(config ServerConfig, logger *slog.Logger) ClientProvider {
			return NewClient(config, logger)
		},
		clients:   make(map[string]ClientProvider),
		toolCount: make(map[string]int),
	}
}

// Initialize loads the configuration, connects to every configured
// server, and registers the discovered tools on the registry. Every
// failure is recovered here: a server that cannot be reached, answers
// the tool listing with an error, or exposes only invalid or colliding
// tools is logged and skipped without affecting any other server. With
// no configuration present Initialize returns immediately and registers
// nothing. It never fails the caller.
func (m *Manager) Initialize(ctx context.Context, registry *tools.Registry) {
	configs := LoadConfig(m.explicitPath, m.workspaceRoot, m.logger)
	if len(configs) == 0 {
		m.logger.Debug("no mcp servers configured")
		return
	}

	for _, config := range configs {
		m.setupServer(ctx, config, registry)
	}

	m.updateConnectedGauge()

	m.logger.Info("mcp initialization complete",
		"configured", len(configs),
		"connected", len(m.ConnectedServers()),
	)
}

// setupServer connects one server and bridges its tools. All failures
// are contained to this server.
func (m *Manager) setupServer(ctx context.Context, config ServerConfig, registry *tools.Registry) {
	m.mu.Lock()
	if _, exists := m.clients[config.Name]; exists {
		m.mu.Unlock()
		m.logger.Warn("duplicate mcp server name, skipping", "server", config.Name)
		return
	}
	client := m.dial(config, m.logger)
	m.clients[config.Name] = client
	m.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		m.logger.Error("failed to connect to mcp server, skipping it",
			"server", config.Name,
			"error", err,
		)
		return
	}

	count, err := BridgeTools(ctx, client, registry, config.IncludeTools, config.ExcludeTools, m.logger)
	if err != nil {
		// A server whose tool listing fails is treated like one that
		// never connected: skipped, with the connection released.
		m.logger.Error("failed to discover tools on mcp server, skipping it",
			"server", config.Name,
			"error", err,
		)
		if cerr := client.Close(); cerr != nil {
			m.logger.Warn("failed to close mcp server after discovery failure",
				"server", config.Name,
				"error", cerr,
			)
		}
		return
	}

	m.mu.Lock()
	m.toolCount[config.Name] = count
	m.mu.Unlock()

	bridgedTools.WithLabelValues(config.Name).Add(float64(count))
	m.logger.Info("mcp server connected", "server", config.Name, "tools", count)
}

// Reload re-reads the configuration and connects servers that were
// added since the last load. Existing connections are left untouched;
// removed or changed entries take effect on the next restart.
func (m *Manager) Reload(ctx context.Context, registry *tools.Registry) {
	configs := LoadConfig(m.explicitPath, m.workspaceRoot, m.logger)

	added := 0
	for _, config := range configs {
		m.mu.RLock()
		_, exists := m.clients[config.Name]
		m.mu.RUnlock()
		if exists {
			continue
		}
		m.setupServer(ctx, config, registry)
		added++
	}

	m.updateConnectedGauge()
	if added > 0 {
		m.logger.Info("mcp configuration reloaded", "added", added)
	}
}

// ConnectedServers returns the names of servers currently in the
// connected state, sorted.
func (m *Manager) ConnectedServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name, client := range m.clients {
		if client.State() == StateConnected {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Client returns the client for a server by name.
func (m *Manager) Client(name string) (ClientProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, fmt.Errorf("mcp server not found: %s", name)
	}
	return client, nil
}

// ServerStatus describes one managed server.
type ServerStatus struct {
	Name  string
	State ConnState
	Tools int
}

// Status returns the status of every managed server, sorted by name.
func (m *Manager) Status() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]ServerStatus, 0, len(m.clients))
	for name, client := range m.clients {
		statuses = append(statuses, ServerStatus{
			Name:  name,
			State: client.State(),
			Tools: m.toolCount[name],
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Shutdown closes every client the manager created, regardless of its
// state. Individual close failures are logged and do not prevent the
// remaining clients from being released.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	clients := make([]ClientProvider, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		if err := client.Close(); err != nil {
			m.logger.Warn("failed to close mcp server",
				"server", client.Name(),
				"error", err,
			)
		}
	}

	m.updateConnectedGauge()
	m.logger.Debug("mcp shutdown complete", "servers", len(clients))
}

// ConfigPath returns the resolved configuration file path, if any. Used
// by the config watcher.
func (m *Manager) ConfigPath() (string, bool) {
	return ResolveConfigPath(m.explicitPath, m.workspaceRoot)
}

func (m *Manager) updateConnectedGauge() {
	connectedServers.Set(float64(len(m.ConnectedServers())))
}
