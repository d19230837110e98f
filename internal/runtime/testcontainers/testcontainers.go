// Package testcontainers runs dev services through testcontainers-go. Start
// and readiness happen in one call, so WaitReady only confirms the container
// is tracked.
package testcontainers

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"devservices/internal/backend"
	"devservices/internal/runtime"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/multierr"
)

type Runtime struct {
	provider       *tc.DockerProvider
	startupTimeout time.Duration

	mu         sync.Mutex
	containers map[string]tc.Container
	names      map[string]string
}

type Option func(*Runtime) error

func WithStartupTimeout(timeout time.Duration) Option {
	return func(r *Runtime) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid startup timeout %v", timeout)
		}
		r.startupTimeout = timeout
		return nil
	}
}

func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		startupTimeout: 2 * time.Minute,
		containers:     map[string]tc.Container{},
		names:          map[string]string{},
	}

	var errs error
	for _, opt := range opts {
		if err := opt(r); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	provider, err := tc.NewDockerProvider()
	if err != nil {
		return nil, fmt.Errorf("could not create docker provider: %w", err)
	}
	r.provider = provider
	return r, nil
}

func (r *Runtime) Pull(ctx context.Context, image string) error {
	return r.provider.PullImage(ctx, image)
}

func buildRequest(name string, desc backend.Descriptor, startupTimeout time.Duration) (tc.ContainerRequest, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(desc.ContainerPort))
	if err != nil {
		return tc.ContainerRequest{}, err
	}

	return tc.ContainerRequest{
		Image:        desc.Image,
		ExposedPorts: []string{string(port)},
		Env:          desc.Env,
		Labels:       runtime.Labels(name),
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.PortBindings = nat.PortMap{
				port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(desc.HostBindPort)}},
			}
		},
		WaitingFor: wait.ForHTTP(desc.ReadinessPath).
			WithPort(port).
			WithStatusCodeMatcher(runtime.IsReadyStatus).
			WithStartupTimeout(startupTimeout),
	}, nil
}

func (r *Runtime) Run(ctx context.Context, name string, desc backend.Descriptor) (string, error) {
	req, err := buildRequest(name, desc, r.startupTimeout)
	if err != nil {
		return "", err
	}

	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if ctr != nil {
			if termErr := ctr.Terminate(context.Background()); termErr != nil {
				log.Warn().Err(termErr).Msg("could not terminate failed container")
			}
		}
		return "", err
	}

	id := ctr.GetContainerID()
	r.mu.Lock()
	r.containers[id] = ctr
	r.names[name] = id
	r.mu.Unlock()
	return id, nil
}

func (r *Runtime) lookup(id string) (tc.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctr, ok := r.containers[id]
	if !ok {
		return nil, runtime.ErrContainerNotFound
	}
	return ctr, nil
}

// WaitReady only checks the container is tracked: Run already blocked on the
// request's HTTP wait strategy.
func (r *Runtime) WaitReady(_ context.Context, id string, _ backend.Descriptor) error {
	_, err := r.lookup(id)
	return err
}

func (r *Runtime) Logs(ctx context.Context, id string) (string, error) {
	ctr, err := r.lookup(id)
	if err != nil {
		return "", err
	}
	reader, err := ctr.Logs(ctx)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Runtime) Host(ctx context.Context) (string, error) {
	return r.provider.DaemonHost(ctx)
}

func (r *Runtime) FindByName(_ context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[name]
	if !ok {
		return "", runtime.ErrContainerNotFound
	}
	return id, nil
}

func (r *Runtime) StopContainer(ctx context.Context, id string) error {
	ctr, err := r.lookup(id)
	if err != nil {
		return err
	}
	timeout := runtime.DefaultStopTimeout
	return ctr.Stop(ctx, &timeout)
}

func (r *Runtime) DeleteContainer(ctx context.Context, id string) error {
	ctr, err := r.lookup(id)
	if err != nil {
		return err
	}
	if err := ctr.Terminate(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.containers, id)
	for name, known := range r.names {
		if known == id {
			delete(r.names, name)
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *Runtime) Close() error {
	return r.provider.Close()
}
