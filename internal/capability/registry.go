package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// Registry holds all available capabilities and provides lookup.
// It is thread-safe and supports registration and removal at runtime,
// which the tool directory watcher relies on.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]*Capability
}

// NewRegistry creates a new empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]*Capability),
	}
}

// Register adds a capability to the registry.
// Returns an error if a capability with the same name already exists.
func (r *Registry) Register(c *Capability) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid capability: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.capabilities[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrCapabilityAlreadyRegistered, c.Name)
	}

	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = time.Now()
	}
	r.capabilities[c.Name] = c

	logging.CapabilityDebug("Registered capability: %s (source=%s)", c.Name, c.Source)
	return nil
}

// MustRegister registers a capability and panics on error.
// Use this for static built-in registration at startup.
func (r *Registry) MustRegister(c *Capability) {
	if err := r.Register(c); err != nil {
		panic(fmt.Sprintf("failed to register capability %s: %v", c.Name, err))
	}
}

// Replace installs a capability, overwriting any existing entry with
// the same name. Built-in entries are never overwritten.
func (r *Registry) Replace(c *Capability) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid capability: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.capabilities[c.Name]; ok && existing.IsBuiltin() {
		return fmt.Errorf("%w: %s", ErrBuiltinImmutable, c.Name)
	}

	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = time.Now()
	}
	r.capabilities[c.Name] = c

	logging.CapabilityDebug("Replaced capability: %s (source=%s)", c.Name, c.Source)
	return nil
}

// Remove deletes a capability from the registry. Built-ins cannot be
// removed.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.capabilities[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	if c.IsBuiltin() {
		return fmt.Errorf("%w: %s", ErrBuiltinImmutable, name)
	}

	delete(r.capabilities, name)
	logging.CapabilityDebug("Removed capability: %s", name)
	return nil
}

// Get returns a capability by name, or nil if not found.
func (r *Registry) Get(name string) *Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.capabilities[name]
}

// Resolve returns a capability by name or ErrCapabilityNotFound.
func (r *Registry) Resolve(name string) (*Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.capabilities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	return c, nil
}

// Has returns true if a capability with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.capabilities[name]
	return ok
}

// All returns all registered capabilities.
func (r *Registry) All() []*Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Capability, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		result = append(result, c)
	}
	return result
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.capabilities)
}

// Touch records that a capability was used. Drives idle pruning.
func (r *Registry) Touch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.capabilities[name]; ok {
		c.LastUsed = time.Now()
	}
}

// Definitions returns wire tool definitions for the model. Built-ins
// are always included; synthesized capabilities are filtered by
// lexical relevance to the goal when their count exceeds the limit.
// A non-positive limit disables filtering.
func (r *Registry) Definitions(goal string, limit int) []types.ToolDefinition {
	selected := r.selectForGoal(goal, limit)

	defs := make([]types.ToolDefinition, 0, len(selected))
	for _, c := range selected {
		defs = append(defs, c.Definition())
	}
	return defs
}

// Execute runs a capability by name with the given arguments.
// Returns ErrCapabilityNotFound if the capability doesn't exist.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	c, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return r.ExecuteCapability(ctx, c, args)
}

// ExecuteCapability runs a specific capability with the given arguments.
func (r *Registry) ExecuteCapability(ctx context.Context, c *Capability, args map[string]any) (*Result, error) {
	start := time.Now()

	if err := r.validateArgs(c, args); err != nil {
		return &Result{
			Capability: c.Name,
			Err:        err,
			DurationMs: time.Since(start).Milliseconds(),
		}, err
	}

	logging.CapabilityDebug("Executing capability: %s", c.Name)
	output, err := c.Execute(ctx, args)

	duration := time.Since(start)
	logging.CapabilityDebug("Capability %s completed in %v (success=%v)", c.Name, duration, err == nil)

	if err == nil {
		r.Touch(c.Name)
	}

	return &Result{
		Capability: c.Name,
		Output:     output,
		Err:        err,
		DurationMs: duration.Milliseconds(),
	}, err
}

// validateArgs checks that all required arguments are present.
func (r *Registry) validateArgs(c *Capability, args map[string]any) error {
	for _, required := range c.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}

// Prune removes synthesized capabilities idle longer than age.
// Capabilities never used fall back to their registration time.
// Returns the names of removed capabilities. Built-ins are exempt.
func (r *Registry) Prune(age time.Duration) []string {
	if age <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-age)

	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for name, c := range r.capabilities {
		if c.IsBuiltin() {
			continue
		}
		last := c.LastUsed
		if last.IsZero() {
			last = c.RegisteredAt
		}
		if last.Before(cutoff) {
			delete(r.capabilities, name)
			pruned = append(pruned, name)
		}
	}

	if len(pruned) > 0 {
		sort.Strings(pruned)
		logging.Capability("Pruned %d idle synthesized capabilities: %v", len(pruned), pruned)
	}
	return pruned
}
