package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

// writeFile writes content to a file inside the workspace.
func writeFile(workspace string) *capability.Capability {
	return &capability.Capability{
		Name:        "write_file",
		Description: "Writes content to a file inside the workspace, creating parent directories as needed. Overwrites the file if it already exists.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"file_path", "content"},
			Properties: map[string]capability.Property{
				"file_path": {Type: "string", Description: "Where to write, relative to the workspace."},
				"content":   {Type: "string", Description: "The full file content."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := stringArg(args, "file_path")
			content := stringArg(args, "content")
			if path == "" {
				return errorPayload("The 'file_path' argument must be a non-empty string."), nil
			}

			abs, err := confinePath(workspace, path)
			if err != nil {
				return errorPayload("Failed to write to file '%s': %v", path, err), nil
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return errorPayload("Failed to write to file '%s': %v", path, err), nil
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return errorPayload("Failed to write to file '%s': %v", path, err), nil
			}

			logging.Capability("Wrote %d bytes to %s", len(content), abs)
			return payload(writeFilePayload{Status: "success", FilePath: path}), nil
		},
	}
}

// confinePath resolves p against the workspace and rejects anything
// that lands outside it.
func confinePath(workspace, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	wsAbs, err := filepath.Abs(workspace)
	if err != nil {
		return "", err
	}

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(wsAbs, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(wsAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path is outside the workspace")
	}
	return abs, nil
}
