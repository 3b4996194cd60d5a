package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// =============================================================================
// YAEGI INTERPRETER - synthesized tool execution
// =============================================================================
// Synthesized tools are interpreted rather than compiled with `go
// build`. Compilation can hang on network access, fail on missing
// dependencies, and produce binaries that outlive their usefulness;
// interpretation keeps tool execution inside this process under a
// context deadline.
//
// SAFETY RESTRICTIONS:
// - Only whitelisted stdlib imports allowed (no external dependencies)
// - No os, os/exec, net, net/http, syscall, or unsafe
// - Timeout enforcement via context

// Interpreter executes synthesized tool source with Yaegi.
type Interpreter struct {
	// Whitelist of allowed stdlib packages
	allowedPackages map[string]bool
}

// NewInterpreter creates a new sandboxed tool interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		allowedPackages: map[string]bool{
			// Safe stdlib packages
			"bytes":           true,
			"encoding/base64": true,
			"encoding/csv":    true,
			"encoding/json":   true,
			"errors":          true,
			"fmt":             true,
			"math":            true,
			"math/rand":       true,
			"path":            true,
			"regexp":          true,
			"sort":            true,
			"strconv":         true,
			"strings":         true,
			"time":            true,
			"unicode":         true,
			"unicode/utf8":    true,

			// EXPLICITLY BLOCKED (unsafe packages):
			// "os" - filesystem access
			// "os/exec" - command execution
			// "net" - network access
			// "net/http" - HTTP client
			// "syscall" - system calls
			// "unsafe" - unsafe operations
		},
	}
}

// Run executes tool source in a sandboxed interpreter.
// The source must define: func RunTool(input string) (string, error)
func (in *Interpreter) Run(ctx context.Context, source, input string) (string, error) {
	runTool, err := in.load(source)
	if err != nil {
		return "", err
	}

	resultChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("tool panicked: %v", r)
			}
		}()
		result, err := runTool(input)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("tool execution timed out: %w", ctx.Err())
	}
}

// Probe validates tool source without executing it: imports must be
// whitelisted, the source must evaluate, and RunTool must exist with
// the expected signature. Used at install time so broken tools are
// rejected before they are advertised to the model.
func (in *Interpreter) Probe(source string) error {
	_, err := in.load(source)
	return err
}

// load evaluates the source and extracts the RunTool function.
func (in *Interpreter) load(source string) (func(string) (string, error), error) {
	if err := in.validateImports(source); err != nil {
		return nil, fmt.Errorf("invalid imports: %w", err)
	}

	i := interp.New(interp.Options{})

	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}

	if _, err := i.Eval(in.wrapSource(source)); err != nil {
		return nil, fmt.Errorf("code evaluation failed: %w", err)
	}

	v, err := i.Eval("main.RunTool")
	if err != nil {
		return nil, fmt.Errorf("RunTool function not found: %w", err)
	}

	runTool, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("RunTool has incorrect signature (expected: func(string) (string, error))")
	}
	return runTool, nil
}

// validateImports checks that the source only imports allowed packages.
func (in *Interpreter) validateImports(source string) error {
	lines := strings.Split(source, "\n")
	var imports []string

	inImportBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "import (") {
			inImportBlock = true
			continue
		}
		if inImportBlock && strings.HasPrefix(trimmed, ")") {
			inImportBlock = false
			continue
		}

		if inImportBlock {
			pkg := strings.Trim(trimmed, `"`)
			if pkg == "" {
				continue
			}
			imports = append(imports, pkg)
		} else if strings.HasPrefix(trimmed, "import ") {
			pkg := strings.TrimPrefix(trimmed, "import ")
			pkg = strings.Trim(pkg, `"`)
			imports = append(imports, pkg)
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if !in.allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}

	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports detected: %v", forbidden)
	}
	return nil
}

// wrapSource wraps bare tool code in a main package if needed.
func (in *Interpreter) wrapSource(source string) string {
	if strings.Contains(source, "package main") {
		return source
	}
	return "package main\n\n" + source
}
