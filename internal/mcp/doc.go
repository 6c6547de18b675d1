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

// Package mcp connects squire to external MCP (Model Context Protocol)
// servers and exposes their tools through the host tool registry.
//
// Servers are declared in a YAML configuration file keyed by server name.
// Each entry selects a transport, either a child process speaking MCP
// over stdio or a remote endpoint reached over a persistent HTTP event
// stream, along with transport parameters and a per-call timeout.
//
// The Manager owns the full lifecycle: it loads the configuration,
// connects to every configured server, discovers each server's tools,
// and registers them in the tool registry under collision-free names of
// the form "mcp_{server}_{tool}". Failures are isolated per server: a
// server that cannot be reached, or whose tool listing fails, is logged
// and skipped without affecting any other server or the host agent's
// startup. At shutdown the Manager closes every connection it opened.
//
// Registered tools call back into their owning Client. From the agent
// loop's perspective a bridged tool is indistinguishable from a local
// one: the handler blocks until the remote call returns a result, fails,
// or exceeds its deadline.
//
// The wire protocol itself (framing, handshake, JSON-RPC envelopes) is
// provided by github.com/mark3labs/mcp-go and is not reimplemented here.
package mcp
