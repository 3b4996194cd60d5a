package capability

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// Manager binds the registry, catalog, and interpreter into the
// synthesized-tool lifecycle: startup reconciliation, hot install
// from the watcher, idle pruning, and execution with a deadline.
type Manager struct {
	registry *Registry
	catalog  *Catalog
	interp   *Interpreter
	dir      string
	timeout  time.Duration
}

// NewManager creates a manager for the given tool directory.
// execTimeout bounds each synthesized tool run; zero means the
// caller's context alone governs.
func NewManager(registry *Registry, catalog *Catalog, dir string, execTimeout time.Duration) *Manager {
	return &Manager{
		registry: registry,
		catalog:  catalog,
		interp:   NewInterpreter(),
		dir:      dir,
		timeout:  execTimeout,
	}
}

// Registry returns the underlying capability registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Dir returns the synthesized tool directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Sync reconciles the tool directory with the catalog at startup.
// Source files are authoritative: a checksum disagreement follows the
// file, a missing file drops the catalog row, and an uncataloged file
// is installed fresh. Usage history in surviving rows is preserved so
// idle pruning works across restarts.
func (m *Manager) Sync() error {
	files, err := LoadDir(m.dir)
	if err != nil {
		return err
	}

	byName := make(map[string]*ToolFile, len(files))
	for _, tf := range files {
		byName[tf.Meta.Name] = tf
	}

	entries, err := m.catalog.List()
	if err != nil {
		return fmt.Errorf("failed to list catalog: %w", err)
	}

	for _, entry := range entries {
		tf, onDisk := byName[entry.Name]
		if !onDisk {
			logging.Capability("Catalog entry %s has no source file, dropping", entry.Name)
			if err := m.catalog.Delete(entry.Name); err != nil {
				logging.CapabilityWarn("Failed to drop catalog entry %s: %v", entry.Name, err)
			}
			continue
		}
		if tf.Checksum != entry.Checksum {
			logging.Capability("Checksum disagreement for %s, source file wins", entry.Name)
		}
	}

	installed := 0
	for _, tf := range files {
		if err := m.Install(tf); err != nil {
			logging.CapabilityWarn("Skipping tool %s: %v", tf.Meta.Name, err)
			continue
		}
		installed++
	}

	logging.Capability("Synced tool directory: %d installed, %d on disk", installed, len(files))
	return nil
}

// Install probes a parsed tool file and, if it is sound, registers it
// and records it in the catalog. Existing synthesized entries with
// the same name are replaced.
func (m *Manager) Install(tf *ToolFile) error {
	if err := m.interp.Probe(tf.Source); err != nil {
		return fmt.Errorf("tool %s failed validation: %w", tf.Meta.Name, err)
	}

	if err := m.registry.Replace(m.newCapability(tf)); err != nil {
		return err
	}

	if err := m.catalog.Upsert(CatalogEntry{
		Name:        tf.Meta.Name,
		Description: tf.Meta.Description,
		Path:        tf.Path,
		Checksum:    tf.Checksum,
	}); err != nil {
		return fmt.Errorf("failed to catalog tool %s: %w", tf.Meta.Name, err)
	}

	logging.Capability("Installed synthesized capability: %s (%s)", tf.Meta.Name, tf.Path)
	return nil
}

// InstallFile parses and installs a tool file by path.
func (m *Manager) InstallFile(path string) error {
	tf, err := ParseFile(path)
	if err != nil {
		return err
	}
	return m.Install(tf)
}

// Uninstall removes a synthesized capability from the registry and
// catalog. The source file is left alone.
func (m *Manager) Uninstall(name string) error {
	if err := m.registry.Remove(name); err != nil {
		return err
	}
	if err := m.catalog.Delete(name); err != nil {
		return fmt.Errorf("failed to remove catalog entry %s: %w", name, err)
	}
	logging.Capability("Uninstalled synthesized capability: %s", name)
	return nil
}

// UninstallPath removes whichever synthesized capability was loaded
// from the given source file. Used by the watcher on delete events.
func (m *Manager) UninstallPath(path string) {
	for _, c := range m.registry.All() {
		if c.Source == SourceSynthesized && c.Path == path {
			if err := m.Uninstall(c.Name); err != nil {
				logging.CapabilityWarn("Failed to uninstall %s after file removal: %v", c.Name, err)
			}
			return
		}
	}
}

// Prune removes synthesized capabilities idle longer than age from
// the catalog, the registry, and the tool directory. Returns the
// pruned names.
func (m *Manager) Prune(age time.Duration) ([]string, error) {
	idle, err := m.catalog.PruneIdle(age)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(idle))
	for _, entry := range idle {
		names = append(names, entry.Name)

		if err := m.registry.Remove(entry.Name); err != nil {
			logging.CapabilityDebug("Prune: %s not in registry: %v", entry.Name, err)
		}
		if entry.Path != "" {
			if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
				logging.CapabilityWarn("Prune: failed to remove %s: %v", entry.Path, err)
			}
		}
	}
	return names, nil
}

// newCapability wraps a tool file in an executable capability. The
// single "input" parameter mirrors the RunTool entry point.
func (m *Manager) newCapability(tf *ToolFile) *Capability {
	inputDesc := tf.Meta.Input
	if inputDesc == "" {
		inputDesc = "Input text passed to the tool."
	}

	source := tf.Source
	name := tf.Meta.Name

	return &Capability{
		Name:        name,
		Description: tf.Meta.Description,
		Source:      SourceSynthesized,
		Path:        tf.Path,
		Checksum:    tf.Checksum,
		Schema: Schema{
			Required: []string{"input"},
			Properties: map[string]Property{
				"input": {Type: "string", Description: inputDesc},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			input, _ := args["input"].(string)

			if m.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, m.timeout)
				defer cancel()
			}

			// Prune clock resets on every attempt, success or not.
			defer func() {
				if err := m.catalog.Touch(name); err != nil {
					logging.StoreDebug("Failed to touch catalog entry %s: %v", name, err)
				}
			}()

			return m.interp.Run(ctx, source, input)
		},
	}
}
