package builtin

import (
	"context"
	"errors"
	"os/exec"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/sandbox"
)

// runShellCommand runs a single command under the sandbox runner. The
// command line is split into argv here; no shell ever runs.
func runShellCommand(runner sandbox.Runner) *capability.Capability {
	return &capability.Capability{
		Name:        "run_shell_command",
		Description: "Runs a single command and returns its output. The command line is split into arguments without shell interpretation, so pipes and redirection are not available.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"command"},
			Properties: map[string]capability.Property{
				"command": {Type: "string", Description: "The command to run, e.g. 'ls -la docs'."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			line := stringArg(args, "command")
			if line == "" {
				return executionError("The 'command' argument must be a non-empty string."), nil
			}
			if runner == nil {
				return executionError("No sandbox runner is configured."), nil
			}

			cmd, err := sandbox.SplitCommand(line)
			if err != nil {
				return executionError("Could not parse command: %v", err), nil
			}
			logging.Capability("Running command: %s", cmd)

			result, err := runner.Run(ctx, cmd)
			if err != nil {
				if errors.Is(err, exec.ErrNotFound) {
					return executionError("Command not found: '%s'. Please ensure it is installed and in your PATH.", cmd.Path), nil
				}
				return executionError("%v", err), nil
			}
			return runResultPayload(result, "command_error"), nil
		},
	}
}
