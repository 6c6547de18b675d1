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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/squire-dev/squire/internal/log"
	"github.com/squire-dev/squire/internal/mcp"
	"github.com/squire-dev/squire/pkg/tools"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	workspace  string
}

func (o *globalOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to the MCP configuration file")
	fs.StringVarP(&o.workspace, "workspace", "w", "", "Workspace root (defaults to the current directory)")
}

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "squire",
		Short: "Squire connects agent tooling to MCP servers",
		Long: `Squire loads the MCP server configuration, connects to every
configured server, and exposes their tools under mcp_{server}_{tool}
names alongside the built-in catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.addFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newToolsCommand(opts))
	rootCmd.AddCommand(newMCPCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session holds the wiring shared by the subcommands: logger, registry,
// and a manager that has already connected to the configured servers.
type session struct {
	logger   *slog.Logger
	registry *tools.Registry
	manager  *mcp.Manager
}

// openSession builds the registry, connects every configured MCP
// server, and bridges their tools. The caller must call close.
func openSession(ctx context.Context, opts *globalOptions) *session {
	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	workspace := opts.workspace
	if workspace == "" {
		if wd, err := os.Getwd(); err == nil {
			workspace = wd
		}
	}

	registry := tools.NewRegistry()
	manager := mcp.NewManager(mcp.ManagerConfig{
		Logger:        logger,
		ConfigPath:    opts.configPath,
		WorkspaceRoot: workspace,
	})
	manager.Initialize(ctx, registry)

	return &session{logger: logger, registry: registry, manager: manager}
}

func (s *session) close() {
	s.manager.Shutdown()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newToolsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and invoke tools",
	}
	cmd.AddCommand(newToolsListCommand(opts))
	cmd.AddCommand(newToolsCallCommand(opts))
	return cmd
}

func newToolsListCommand(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tools, including bridged MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s := openSession(ctx, opts)
			defer s.close()

			entries := s.registry.ListTools()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools available.")
				return nil
			}
			for _, t := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Name, t.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newToolsCallCommand(opts *globalOptions) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool-name>",
		Short: "Invoke a tool by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args: %w", err)
				}
			}

			s := openSession(ctx, opts)
			defer s.close()

			out, err := s.registry.Execute(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "Tool arguments as a JSON object")
	return cmd
}

func newMCPCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP server connections",
	}
	cmd.AddCommand(newMCPStatusCommand(opts))
	return cmd
}

func newMCPStatusCommand(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every configured MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			s := openSession(ctx, opts)
			defer s.close()

			statuses := s.manager.Status()

			if jsonOutput {
				type statusOut struct {
					Name  string `json:"name"`
					State string `json:"state"`
					Tools int    `json:"tools"`
				}
				out := make([]statusOut, 0, len(statuses))
				for _, st := range statuses {
					out = append(out, statusOut{Name: st.Name, State: string(st.State), Tools: st.Tools})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No MCP servers configured.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %s\n", "SERVER", "STATE", "TOOLS")
			for _, st := range statuses {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %d\n", st.Name, st.State, st.Tools)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "squire %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
