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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "squire_mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server", "tool", "outcome"},
	)

	connectedServers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "squire_mcp_connected_servers",
		Help: "Number of MCP servers currently connected",
	})

	bridgedTools = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squire_mcp_bridged_tools_total",
			Help: "Total tools registered from MCP servers",
		},
		[]string{"server"},
	)
)

// observeToolCall records duration and outcome for one tool call.
func observeToolCall(server, tool, outcome string, elapsed time.Duration) {
	toolCallDuration.WithLabelValues(server, tool, outcome).Observe(elapsed.Seconds())
}
