package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// containerWorkdir is where the workspace is mounted inside the container.
const containerWorkdir = "/workspace"

// dockerPidsLimit bounds process count inside a run container.
const dockerPidsLimit = int64(256)

// DockerOptions configures a DockerRunner.
type DockerOptions struct {
	// Workspace is the host directory bind-mounted at /workspace.
	// Must be absolute.
	Workspace string

	// Image is the container image for runs.
	Image string

	// CPU is the CPU share in whole cores (0.5 = half a core).
	CPU float64

	// MemoryMB caps container memory.
	MemoryMB int64

	// Timeout bounds each run. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps each captured stream. Zero means
	// DefaultMaxOutputBytes.
	MaxOutputBytes int64

	// Network is the Docker network mode. Empty means "none": runs
	// have no network unless explicitly granted one.
	Network string
}

// DockerRunner executes each command in a fresh container. The
// workspace is the only host path visible inside, and the container is
// removed when the run finishes.
type DockerRunner struct {
	cli  *client.Client
	opts DockerOptions
}

// NewDockerRunner connects to the Docker daemon from the environment.
func NewDockerRunner(opts DockerOptions) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if opts.Network == "" {
		opts.Network = "none"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &DockerRunner{cli: cli, opts: opts}, nil
}

// Name identifies the runner implementation.
func (r *DockerRunner) Name() string { return string(ModeDocker) }

// Ping verifies the daemon is reachable.
func (r *DockerRunner) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// Run creates a container, executes the command inside it, and removes
// the container afterwards.
func (r *DockerRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Path == "" {
		return nil, errors.New("command path is required")
	}
	if cmd.Stdin != "" {
		return nil, errors.New("stdin is not supported by the docker runner")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	name := "alice-run-" + uuid.NewString()[:8]
	logging.Sandbox("Docker run: %s (image=%s, name=%s)", cmd.String(), r.opts.Image, name)

	id, err := r.createContainer(runCtx, cmd, name)
	if err != nil {
		return nil, err
	}
	defer r.removeContainer(id)

	start := time.Now()
	if err := r.cli.ContainerStart(runCtx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	result := &Result{ExitCode: -1, Mode: ModeDocker}

	waitCh, errCh := r.cli.ContainerWait(runCtx, id, container.WaitConditionNotRunning)
	select {
	case resp := <-waitCh:
		result.ExitCode = int(resp.StatusCode)

	case err := <-errCh:
		if runCtx.Err() == nil {
			return nil, fmt.Errorf("wait for container: %w", err)
		}
		r.killContainer(id)
		result.Killed = true
		result.KillReason = r.killReason(ctx)

	case <-runCtx.Done():
		r.killContainer(id)
		result.Killed = true
		result.KillReason = r.killReason(ctx)
	}
	result.Duration = time.Since(start)

	if err := r.collectLogs(id, result); err != nil {
		logging.SandboxWarn("Failed to collect container logs: %v", err)
	}

	logging.Sandbox("Docker finished: %s -> exit=%d killed=%v duration=%s",
		cmd.Path, result.ExitCode, result.Killed, result.Duration.Round(time.Millisecond))
	return result, nil
}

// createContainer creates the run container, pulling the image on a
// not-found error.
func (r *DockerRunner) createContainer(ctx context.Context, cmd Command, name string) (string, error) {
	resp, err := r.cli.ContainerCreate(ctx, r.containerConfig(cmd), r.hostConfig(), nil, nil, name)
	if err == nil {
		return resp.ID, nil
	}
	if !errdefs.IsNotFound(err) {
		return "", fmt.Errorf("create container: %w", err)
	}

	logging.Sandbox("Pulling image %s", r.opts.Image)
	rc, pullErr := r.cli.ImagePull(ctx, r.opts.Image, image.PullOptions{})
	if pullErr != nil {
		return "", fmt.Errorf("pull image %s: %w", r.opts.Image, pullErr)
	}
	// The pull completes only once the stream is drained.
	_, _ = io.Copy(io.Discard, rc)
	rc.Close()

	resp, err = r.cli.ContainerCreate(ctx, r.containerConfig(cmd), r.hostConfig(), nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create container after pull: %w", err)
	}
	return resp.ID, nil
}

// containerConfig maps the command onto the container definition.
func (r *DockerRunner) containerConfig(cmd Command) *container.Config {
	return &container.Config{
		Image:      r.opts.Image,
		Cmd:        append([]string{cmd.Path}, cmd.Args...),
		WorkingDir: containerWorkdir,
		Env:        cmd.Env,
	}
}

// hostConfig applies the bind mount, resource limits, and network mode.
func (r *DockerRunner) hostConfig() *container.HostConfig {
	return &container.HostConfig{
		NetworkMode: container.NetworkMode(r.opts.Network),
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: r.opts.Workspace,
			Target: containerWorkdir,
		}},
		Resources: container.Resources{
			NanoCPUs:  int64(r.opts.CPU * 1e9),
			Memory:    r.opts.MemoryMB * 1024 * 1024,
			PidsLimit: ptr(dockerPidsLimit),
		},
	}
}

// collectLogs demuxes the container's output streams into the result,
// applying the per-stream cap. Uses a fresh context so logs are still
// retrievable after a deadline kill.
func (r *DockerRunner) collectLogs(id string, result *Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rc, err := r.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return err
	}
	defer rc.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: r.opts.MaxOutputBytes}
	stderr := &limitedWriter{w: &stderrBuf, max: r.opts.MaxOutputBytes}
	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil {
		return err
	}

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Truncated = stdout.truncated || stderr.truncated
	return nil
}

// killContainer force-kills a still-running container after a deadline.
func (r *DockerRunner) killContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.cli.ContainerKill(ctx, id, "KILL"); err != nil && !errdefs.IsNotFound(err) {
		logging.SandboxWarn("Failed to kill container %s: %v", id, err)
	}
}

// removeContainer cleans up the run container regardless of how the
// run ended.
func (r *DockerRunner) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		logging.SandboxWarn("Failed to remove container %s: %v", id, err)
	}
}

// killReason distinguishes a timeout from an outside cancellation.
func (r *DockerRunner) killReason(parent context.Context) string {
	if parent.Err() != nil {
		return "canceled"
	}
	return fmt.Sprintf("timeout after %s", r.opts.Timeout)
}

func ptr[T any](v T) *T {
	return &v
}
