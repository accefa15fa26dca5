// Package engine is the typed wrapper over the container daemon (C4): it
// is the only package in the control plane that imports
// github.com/docker/docker/client. Every other component that needs a
// container manipulated goes through the Client type here.
package engine

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
)

// workspaceIDEnv is the environment variable every workspace container is
// started with, so the process inside can address itself without the
// control plane injecting anything more privileged.
const workspaceIDEnv = "WORKSPACE_ID"

// Client wraps the docker engine API client with the specific, narrow set
// of operations the workspace lifecycle manager needs. It never exposes
// the underlying *client.Client so callers cannot reach for an operation
// outside this contract.
type Client struct {
	cli         *client.Client
	networkName string
	imageRef    string
}

// New connects to the daemon named by host (empty uses the environment's
// DOCKER_HOST / the default local socket) and binds the client to a single
// internal network and workspace image.
func New(host, networkName, imageRef string) (*Client, error) {
	const op = "engine.New"

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return &Client{cli: cli, networkName: networkName, imageRef: imageRef}, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.cli.Close()
}

// EnsureNetwork idempotently creates the internal bridge network every
// workspace container attaches to. The network carries no external
// connectivity: Internal is set so containers on it can reach each other
// but nothing routes out, and nothing routes in from the host beyond the
// daemon-managed bridge itself.
func (c *Client) EnsureNetwork(ctx context.Context) error {
	const op = "engine.EnsureNetwork"

	_, err := c.cli.NetworkInspect(ctx, c.networkName, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}

	_, err = c.cli.NetworkCreate(ctx, c.networkName, network.CreateOptions{
		Driver:   "bridge",
		Internal: true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return nil
}

// CreateWorkspaceContainer creates (but does not start) the container
// backing workspaceID, applying the hard constraints of spec §4.4: no port
// bindings, a CFS CPU quota, a hard memory ceiling with swap disabled,
// a reduced capability set, no-new-privileges, and restart policy off. It
// never starts the container and never attaches it to any network besides
// the one EnsureNetwork created.
func (c *Client) CreateWorkspaceContainer(ctx context.Context, workspaceID string, limits Limits) (string, error) {
	const op = "engine.CreateWorkspaceContainer"

	// The engine has no configured memory band, so only the fixed CPU range
	// and a non-zero (bounded) memory ceiling are checked here.
	if err := limits.Validate(1, math.MaxInt64); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, _, err := c.cli.ImageInspectWithRaw(ctx, c.imageRef); err != nil {
		if client.IsErrNotFound(err) {
			return "", fmt.Errorf("%s: %w: %s", op, ErrImageMissing, c.imageRef)
		}
		return "", fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}

	containerCfg := &container.Config{
		Image:    c.imageRef,
		Hostname: "ws-" + workspaceID[:8],
		Env:      []string{workspaceIDEnv + "=" + workspaceID},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs:   limits.nanoCPUs(),
			CPUPeriod:  cpuPeriodMicros,
			Memory:     limits.MemoryBytes,
			MemorySwap: limits.MemoryBytes, // memory-plus-swap == memory: swap disabled
		},
		CapDrop:        []string{"ALL"},
		CapAdd:         []string{"NET_BIND_SERVICE"},
		SecurityOpt:    []string{"no-new-privileges"},
		RestartPolicy:  container.RestartPolicy{Name: container.RestartPolicyDisabled},
		PortBindings:   nat.PortMap{},   // no port is ever published
		NetworkMode:    container.NetworkMode(c.networkName),
		ReadonlyRootfs: false,
	}

	netCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			c.networkName: {},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, containerCfg, hostCfg, netCfg, nil, "workspace-"+workspaceID)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return resp.ID, nil
}

// Start starts the container named by handle. Starting an already-running
// container is a no-op success, per spec §4.4's idempotency requirement.
func (c *Client) Start(ctx context.Context, handle string) error {
	const op = "engine.Start"

	info, err := c.cli.ContainerInspect(ctx, handle)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	if info.State != nil && info.State.Running {
		return nil
	}
	if err := c.cli.ContainerStart(ctx, handle, container.StartOptions{}); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return nil
}

// Stop stops the container named by handle, giving it timeout to exit
// gracefully before the daemon escalates to SIGKILL. Stopping an
// already-stopped or absent container is a no-op success.
func (c *Client) Stop(ctx context.Context, handle string, timeout time.Duration) error {
	const op = "engine.Stop"

	info, err := c.cli.ContainerInspect(ctx, handle)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	if info.State == nil || !info.State.Running {
		return nil
	}

	secs := int(timeout.Seconds())
	if err := c.cli.ContainerStop(ctx, handle, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return nil
}

// Remove force-removes the container named by handle. Removing an absent
// container is a no-op success.
func (c *Client) Remove(ctx context.Context, handle string) error {
	const op = "engine.Remove"

	err := c.cli.ContainerRemove(ctx, handle, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return nil
}

// Status is the subset of container state the lifecycle manager and the
// reverse proxy care about.
type Status struct {
	Running bool
	ExitCode int
}

// Inspect returns the current daemon-side state of the container named by
// handle.
func (c *Client) Inspect(ctx context.Context, handle string) (Status, error) {
	const op = "engine.Inspect"

	info, err := c.cli.ContainerInspect(ctx, handle)
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	if info.State == nil {
		return Status{}, nil
	}
	return Status{Running: info.State.Running, ExitCode: info.State.ExitCode}, nil
}

// InternalIP returns the container's address on the internal network, or
// ok=false if the container has no such address (not running, or not yet
// attached). The reverse proxy calls this on every request — never cached
// across requests — so a container restart is picked up immediately.
func (c *Client) InternalIP(ctx context.Context, handle string) (string, bool, error) {
	const op = "engine.InternalIP"

	info, err := c.cli.ContainerInspect(ctx, handle)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	if info.NetworkSettings == nil {
		return "", false, nil
	}
	ep, ok := info.NetworkSettings.Networks[c.networkName]
	if !ok || ep.IPAddress == "" {
		return "", false, nil
	}
	return ep.IPAddress, true, nil
}

// Logs returns a reader over the container's combined stdout/stderr, used
// only by operator tooling outside the request path.
func (c *Client) Logs(ctx context.Context, handle string) (io.ReadCloser, error) {
	const op = "engine.Logs"
	rc, err := c.cli.ContainerLogs(ctx, handle, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrEngine, err)
	}
	return rc, nil
}
