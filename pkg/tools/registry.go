// Package tools provides the action catalog consumed by the agent loop.
//
// A Tool is a named, callable action with a JSON Schema describing its
// input. Tools are registered once at startup, built-in actions and
// bridged remote capabilities alike, and invoked by name through the
// Registry. The agent loop treats every entry identically regardless of
// where it executes.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrToolExists is returned by Register when a tool with the same name
// is already present. Callers that tolerate collisions (e.g. the MCP
// bridge) check for it with errors.Is.
var ErrToolExists = errors.New("tool already registered")

// Handler executes a tool call and returns the result as plain text.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool represents a callable action in the catalog.
type Tool struct {
	// Name is the unique identifier for this tool.
	Name string `json:"name"`

	// Description explains what the tool does.
	Description string `json:"description"`

	// InputSchema is the JSON Schema for the tool's arguments,
	// kept verbatim as provided by the tool's origin.
	InputSchema []byte `json:"inputSchema"`

	// Handler executes the tool. Not serialized.
	Handler Handler `json:"-"`
}

// EventEmitter receives a notification for every tool execution.
// callID is unique per invocation.
type EventEmitter func(ctx context.Context, callID, toolName string, err error)

// Registry maintains the set of registered tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	emitter EventEmitter
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// SetEventEmitter sets the callback invoked after each execution.
func (r *Registry) SetEventEmitter(emitter EventEmitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitter = emitter
}

// Register adds a tool to the registry. The existence check and the
// insert happen under one lock so two concurrent registrations can
// never both claim the same name.
func (r *Registry) Register(t *Tool) error {
	if t == nil {
		return fmt.Errorf("cannot register nil tool")
	}
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolExists, t.Name)
	}

	r.tools[t.Name] = t
	return nil
}

// Unregister removes a tool by name. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// List returns all registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools returns all registered tools.
func (r *Registry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute invokes a tool by name. The error from the handler is
// returned to the caller exactly as a local action's failure would be.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	callID := uuid.New().String()

	result, err := tool.Handler(ctx, args)

	r.mu.RLock()
	emitter := r.emitter
	r.mu.RUnlock()
	if emitter != nil {
		emitter(ctx, callID, name, err)
	}

	return result, err
}
