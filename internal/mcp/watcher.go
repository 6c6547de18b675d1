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
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/squire-dev/squire/pkg/tools"
)

// Watcher monitors the MCP configuration file and asks the manager to
// pick up newly added servers when the file changes. Editors typically
// replace files on save, so the parent directory is watched rather than
// the file itself.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	manager   *Manager
	registry  *tools.Registry
	logger    *slog.Logger

	// configPath is the resolved configuration file being tracked.
	configPath string

	// debounceDelay coalesces bursts of write events into one reload.
	debounceDelay time.Duration

	mu            sync.Mutex
	pendingReload *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherConfig configures the configuration watcher.
type WatcherConfig struct {
	// Manager is notified when the configuration file changes.
	Manager *Manager

	// Registry receives tools bridged from newly added servers.
	Registry *tools.Registry

	// Logger is used for structured logging (optional).
	Logger *slog.Logger

	// DebounceDelay is the delay before reloading after file changes
	// (defaults to 200ms).
	DebounceDelay time.Duration
}

// NewWatcher creates a watcher for the manager's configuration file. It
// returns an error when no configuration file path can be resolved.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	configPath, ok := cfg.Manager.ConfigPath()
	if !ok {
		return nil, fmt.Errorf("no mcp configuration path to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(configPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(configPath), err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounceDelay := cfg.DebounceDelay
	if debounceDelay == 0 {
		debounceDelay = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsWatcher:     fsWatcher,
		manager:       cfg.Manager,
		registry:      cfg.Registry,
		logger:        logger,
		configPath:    configPath,
		debounceDelay: debounceDelay,
		ctx:           ctx,
		cancel:        cancel,
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Debug("watching mcp configuration", "path", configPath)

	return w, nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}

			w.logger.Info("mcp configuration changed", "path", w.configPath)
			w.scheduleReload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)

		case <-w.ctx.Done():
			return
		}
	}
}

// scheduleReload arms the debounce timer, replacing any pending one.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pendingReload != nil {
		w.pendingReload.Stop()
	}
	w.pendingReload = time.AfterFunc(w.debounceDelay, w.triggerReload)
}

func (w *Watcher) triggerReload() {
	w.mu.Lock()
	w.pendingReload = nil
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	w.manager.Reload(w.ctx, w.registry)
}

// Close shuts down the watcher.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.pendingReload != nil {
		w.pendingReload.Stop()
		w.pendingReload = nil
	}
	w.mu.Unlock()

	w.wg.Wait()

	return w.fsWatcher.Close()
}
