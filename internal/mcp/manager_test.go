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
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squire-dev/squire/pkg/tools"
)

// writeManagerConfig writes a config file and pins the resolution to it
// through the environment variable.
func writeManagerConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(EnvConfigPath, path)
}

// newTestManager builds a manager whose dial function hands out the
// given fakes by server name. Unknown names get a plain fake.
func newTestManager(fakes map[string]*fakeClient) *Manager {
	m := NewManager(ManagerConfig{Logger: testLogger()})
	m.dial = func(config ServerConfig, _ *slog.Logger) ClientProvider {
		if f, ok := fakes[config.Name]; ok {
			return f
		}
		return newFakeClient(config.Name)
	}
	return m
}

func TestManagerInitialize(t *testing.T) {
	writeManagerConfig(t, `
servers:
  files:
    transport: stdio
    command: files-server
`)

	files := newFakeClient("files")
	files.tools = []ToolDefinition{
		{Name: "read", Description: "Read a file", InputSchema: echoSchema},
	}
	files.response = textResponse("file contents")

	m := newTestManager(map[string]*fakeClient{"files": files})
	registry := tools.NewRegistry()
	m.Initialize(context.Background(), registry)
	defer m.Shutdown()

	assert.Equal(t, []string{"files"}, m.ConnectedServers())
	require.True(t, registry.Has("mcp_files_read"))

	out, err := registry.Execute(context.Background(), "mcp_files_read",
		map[string]any{"path": "/etc/hosts"})
	require.NoError(t, err)
	assert.Equal(t, "file contents", out)
}

func TestManagerInitializeNoConfig(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", t.TempDir())

	m := NewManager(ManagerConfig{Logger: testLogger()})
	registry := tools.NewRegistry()
	m.Initialize(context.Background(), registry)

	assert.Empty(t, m.ConnectedServers())
	assert.Empty(t, registry.List())
}

func TestManagerFaultIsolation(t *testing.T) {
	writeManagerConfig(t, `
servers:
  alpha:
    transport: stdio
    command: a
  beta:
    transport: stdio
    command: b
  gamma:
    transport: stdio
    command: c
`)

	alpha := newFakeClient("alpha")
	alpha.connectErr = ErrConnectFailed("alpha", assert.AnError)

	beta := newFakeClient("beta")
	beta.listErr = ErrDiscoveryFailed("beta", assert.AnError)

	gamma := newFakeClient("gamma")
	gamma.tools = []ToolDefinition{
		{Name: "run", Description: "run", InputSchema: echoSchema},
	}

	m := newTestManager(map[string]*fakeClient{
		"alpha": alpha, "beta": beta, "gamma": gamma,
	})
	registry := tools.NewRegistry()
	m.Initialize(context.Background(), registry)
	defer m.Shutdown()

	// One server failed to connect and one failed discovery; the third
	// is unaffected.
	assert.Equal(t, []string{"gamma"}, m.ConnectedServers())
	assert.Equal(t, []string{"mcp_gamma_run"}, registry.List())

	// The discovery failure released the half-connected server.
	assert.Equal(t, 1, beta.closeCount())
}

func TestManagerStatus(t *testing.T) {
	writeManagerConfig(t, `
servers:
  bad:
    transport: stdio
    command: b
  good:
    transport: stdio
    command: g
`)

	bad := newFakeClient("bad")
	bad.connectErr = ErrConnectFailed("bad", assert.AnError)
	good := newFakeClient("good")
	good.tools = []ToolDefinition{
		{Name: "x", Description: "x", InputSchema: echoSchema},
		{Name: "y", Description: "y", InputSchema: echoSchema},
	}

	m := newTestManager(map[string]*fakeClient{"bad": bad, "good": good})
	m.Initialize(context.Background(), tools.NewRegistry())
	defer m.Shutdown()

	statuses := m.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, ServerStatus{Name: "bad", State: StateFailed}, statuses[0])
	assert.Equal(t, ServerStatus{Name: "good", State: StateConnected, Tools: 2}, statuses[1])
}

func TestManagerClientLookup(t *testing.T) {
	writeManagerConfig(t, `
servers:
  files:
    transport: stdio
    command: f
`)

	files := newFakeClient("files")
	m := newTestManager(map[string]*fakeClient{"files": files})
	m.Initialize(context.Background(), tools.NewRegistry())
	defer m.Shutdown()

	client, err := m.Client("files")
	require.NoError(t, err)
	assert.Equal(t, "files", client.Name())

	_, err = m.Client("nope")
	assert.Error(t, err)
}

func TestManagerShutdown(t *testing.T) {
	writeManagerConfig(t, `
servers:
  one:
    transport: stdio
    command: a
  two:
    transport: stdio
    command: b
`)

	one := newFakeClient("one")
	one.closeErr = assert.AnError
	two := newFakeClient("two")

	m := newTestManager(map[string]*fakeClient{"one": one, "two": two})
	m.Initialize(context.Background(), tools.NewRegistry())

	m.Shutdown()

	// A close failure on one server never prevents the others from
	// being released.
	assert.Equal(t, 1, one.closeCount())
	assert.Equal(t, 1, two.closeCount())
	assert.Empty(t, m.ConnectedServers())
}

func TestManagerReloadAddsNewServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  files:
    transport: stdio
    command: f
`), 0o644))
	t.Setenv(EnvConfigPath, path)

	files := newFakeClient("files")
	files.tools = []ToolDefinition{{Name: "read", Description: "r", InputSchema: echoSchema}}
	search := newFakeClient("search")
	search.tools = []ToolDefinition{{Name: "find", Description: "f", InputSchema: echoSchema}}

	m := newTestManager(map[string]*fakeClient{"files": files, "search": search})
	registry := tools.NewRegistry()
	m.Initialize(context.Background(), registry)
	defer m.Shutdown()

	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  files:
    transport: stdio
    command: f
  search:
    transport: http
    url: https://example.com/mcp
`), 0o644))

	m.Reload(context.Background(), registry)

	assert.Equal(t, []string{"files", "search"}, m.ConnectedServers())
	assert.True(t, registry.Has("mcp_search_find"))
	// The existing connection was left alone.
	assert.Equal(t, StateConnected, files.State())
}
