package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"devservices/internal/backend"
	"devservices/internal/runtime"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
)

type Docker struct {
	client *client.Client
	probe  *http.Client
}

func NewDockerClient(opts ...client.Opt) (*Docker, error) {
	opts = append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, opts...)
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	docker := &Docker{
		client: cli,
		probe:  &http.Client{Timeout: 2 * time.Second},
	}

	return docker, nil
}

func (d *Docker) Pull(ctx context.Context, ref string) error {
	if _, err := d.client.ImageInspect(ctx, ref); err == nil {
		log.Debug().Str("image", ref).Msg("image present locally")
		return nil
	}

	events, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer events.Close()

	decode := json.NewDecoder(events)

	type Event struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}

	for {
		var event Event
		if err := decode.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if event.Error != "" {
			return fmt.Errorf("pulling %s: %s", ref, event.Error)
		}
	}

	return nil
}

func translatePorts(desc backend.Descriptor) (nat.PortSet, nat.PortMap, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(desc.ContainerPort))
	if err != nil {
		return nil, nil, err
	}

	exposed := nat.PortSet{port: struct{}{}}
	bindings := nat.PortMap{
		port: []nat.PortBinding{
			{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(desc.HostBindPort),
			},
		},
	}
	return exposed, bindings, nil
}

func buildConfigs(name string, desc backend.Descriptor) (*container.Config, *container.HostConfig, error) {
	exposed, bindings, err := translatePorts(desc)
	if err != nil {
		return nil, nil, err
	}

	containerConfig := &container.Config{
		Image:        desc.Image,
		Env:          desc.EnvList(),
		ExposedPorts: exposed,
		Labels:       runtime.Labels(name),
	}

	hostConf := &container.HostConfig{
		PortBindings: bindings,
	}
	return containerConfig, hostConf, nil
}

func (d *Docker) Run(ctx context.Context, name string, desc backend.Descriptor) (string, error) {
	containerConfig, hostConf, err := buildConfigs(name, desc)
	if err != nil {
		return "", err
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConf, nil, nil, "")
	if err != nil {
		return "", err
	}

	return resp.ID, d.client.ContainerStart(ctx, resp.ID, container.StartOptions{})
}

// WaitReady polls the readiness path on the bound host port until the engine
// answers, the container exits or ctx is done.
func (d *Docker) WaitReady(ctx context.Context, id string, desc backend.Descriptor) error {
	host, err := d.Host(ctx)
	if err != nil {
		return err
	}
	target := fmt.Sprintf("http://%s%s", runtime.HostAddress(host, desc), desc.ReadinessPath)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0

	op := func() error {
		inspect, err := d.client.ContainerInspect(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if inspect.ContainerJSONBase != nil && inspect.State != nil && !inspect.State.Running {
			return backoff.Permanent(fmt.Errorf("container %s is %s (exit code %d)", id, inspect.State.Status, inspect.State.ExitCode))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := d.probe.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if !runtime.IsReadyStatus(resp.StatusCode) {
			return fmt.Errorf("%s answered %d", target, resp.StatusCode)
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		log.Debug().Err(err).Str("id", id).Msgf("container not ready, retrying in %v", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("container %s not ready: %w", id, ctx.Err())
		}
		return err
	}
	return nil
}

func (d *Docker) Logs(ctx context.Context, id string) (string, error) {
	reader, err := d.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Host returns the address containers publish their ports on: the daemon host
// for remote daemons, localhost otherwise.
func (d *Docker) Host(_ context.Context) (string, error) {
	return daemonHostname(d.client.DaemonHost())
}

func daemonHostname(daemonHost string) (string, error) {
	u, err := url.Parse(daemonHost)
	if err != nil {
		return "", fmt.Errorf("could not parse docker host %q: %w", daemonHost, err)
	}
	switch u.Scheme {
	case "tcp", "http", "https":
		if u.Hostname() != "" {
			return u.Hostname(), nil
		}
	}
	return "localhost", nil
}

func (d *Docker) FindByName(ctx context.Context, name string) (string, error) {
	args := filters.NewArgs(
		filters.Arg("label", fmt.Sprintf("%s=%s", runtime.LabelNameKey, name)),
		filters.Arg("label", fmt.Sprintf("%s=%s", runtime.LabelSessionKey, runtime.SessionID)),
	)
	containersList, err := d.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Latest:  true,
		Limit:   1,
		Filters: args,
	})
	if err != nil {
		return "", err
	}

	if len(containersList) > 0 {
		return containersList[0].ID, nil
	}

	return "", runtime.ErrContainerNotFound
}

func (d *Docker) StopContainer(ctx context.Context, id string) error {
	timeout := int(runtime.DefaultStopTimeout.Seconds())
	err := d.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
	if err != nil {
		if client.IsErrNotFound(err) {
			return runtime.ErrContainerNotFound
		}
		log.Error().Err(err).Msgf("could not stop container %s", id)
		return err
	}
	log.Info().Msgf("Container %s stopped", id)
	return nil
}

func (d *Docker) DeleteContainer(ctx context.Context, id string) error {
	opts := container.RemoveOptions{
		RemoveVolumes: true,
		Force:         true,
	}
	if err := d.client.ContainerRemove(ctx, id, opts); err != nil {
		if client.IsErrNotFound(err) {
			return runtime.ErrContainerNotFound
		}
		return err
	}
	return nil
}

func (d *Docker) Close() error {
	return d.client.Close()
}
