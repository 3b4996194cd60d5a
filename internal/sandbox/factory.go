package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

// NewFromConfig builds the runner selected in the sandbox config
// section. The docker runner is verified against the daemon before it
// is handed out so a missing daemon fails at startup, not mid-session.
func NewFromConfig(cfg *config.Config) (Runner, error) {
	switch Mode(cfg.Sandbox.Runner) {
	case ModeProcess, "":
		logging.Sandbox("Using process runner (workspace=%s)", cfg.Workspace)
		return &ProcessRunner{
			Workspace:      cfg.Workspace,
			Timeout:        cfg.Sandbox.Timeout(),
			MaxOutputBytes: DefaultMaxOutputBytes,
		}, nil

	case ModeDocker:
		network := cfg.Sandbox.Network
		if network == "" {
			network = "none"
		}
		runner, err := NewDockerRunner(DockerOptions{
			Workspace: cfg.Workspace,
			Image:     cfg.Sandbox.Image,
			CPU:       cfg.Sandbox.CPU,
			MemoryMB:  int64(cfg.Sandbox.MemoryMB),
			Timeout:   cfg.Sandbox.Timeout(),
			Network:   network,
		})
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := runner.Ping(ctx); err != nil {
			return nil, err
		}
		logging.Sandbox("Using docker runner (image=%s, network=%s)", cfg.Sandbox.Image, network)
		return runner, nil

	default:
		return nil, fmt.Errorf("unknown sandbox runner: %q", cfg.Sandbox.Runner)
	}
}
