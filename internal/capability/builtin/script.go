package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/sandbox"
)

// executeScript runs a workspace script under the sandbox runner.
func executeScript(runner sandbox.Runner, workspace string) *capability.Capability {
	return &capability.Capability{
		Name:        "execute_script",
		Description: "Executes a script from the workspace in the sandbox and returns its output. Python (.py) and shell (.sh) scripts are supported.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"script_path"},
			Properties: map[string]capability.Property{
				"script_path": {Type: "string", Description: "Path to the script, relative to the workspace."},
				"args":        {Type: "array", Description: "Optional arguments passed to the script."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			scriptPath := stringArg(args, "script_path")
			if scriptPath == "" {
				return errorPayload("The 'script_path' argument must be a non-empty string."), nil
			}
			if runner == nil {
				return executionError("No sandbox runner is configured."), nil
			}

			abs, err := confinePath(workspace, scriptPath)
			if err != nil {
				return executionError("Invalid script path '%s': %v", scriptPath, err), nil
			}
			if _, err := os.Stat(abs); err != nil {
				return payload(notFoundPayload{
					Status: "error",
					Error:  fmt.Sprintf("Script not found at path: %s", scriptPath),
				}), nil
			}

			cmd := sandbox.Command{
				Path: interpreterFor(abs),
				Args: append([]string{abs}, stringSliceArg(args, "args")...),
			}
			logging.Capability("Executing script: %s", cmd)

			result, err := runner.Run(ctx, cmd)
			if err != nil {
				if errors.Is(err, exec.ErrNotFound) {
					return executionError("The '%s' command was not found. Is it installed and in your PATH?", cmd.Path), nil
				}
				return executionError("%v", err), nil
			}
			return runResultPayload(result, "script_error"), nil
		},
	}
}

// interpreterFor picks the interpreter by file extension.
func interpreterFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sh":
		return "sh"
	default:
		return "python3"
	}
}

// runResultPayload maps a sandbox result to the uniform output shape.
// failStatus names the non-zero-exit status for this capability.
func runResultPayload(result *sandbox.Result, failStatus string) string {
	if result.Killed {
		return executionError("Execution was killed: %s.", result.KillReason)
	}
	if result.ExitCode == 0 {
		return payload(runPayload{Status: "success", Stdout: result.Stdout, Stderr: result.Stderr})
	}
	return payload(runPayload{
		Status:     failStatus,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ReturnCode: result.ExitCode,
	})
}
