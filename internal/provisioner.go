package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"devservices/internal/backend"
	"devservices/internal/config"
	"devservices/internal/metrics"
	"devservices/internal/runtime"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

var ErrProvisioning = errors.New("could not provision dev service")

type Address struct {
	Host string
	Port int
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// RunningService is a started dev service container. Release stops and
// removes it; it runs at most once and is a no-op on a zero value.
type RunningService struct {
	ID      string
	Kind    backend.Kind
	Address Address

	release    func() error
	once       sync.Once
	released   atomic.Bool
	releaseErr error
}

func (s *RunningService) Release() error {
	if s == nil || s.release == nil {
		return nil
	}
	s.once.Do(func() {
		s.releaseErr = s.release()
		s.released.Store(true)
	})
	return s.releaseErr
}

func (s *RunningService) Released() bool {
	return s != nil && s.released.Load()
}

type Provisioner struct {
	runtime        runtime.ContainerRuntime
	startupTimeout time.Duration
	releaseTimeout time.Duration
	metrics        *metrics.Metrics
}

type ProvisionerOpts func(*Provisioner) error

func WithStartupTimeout(timeout time.Duration) ProvisionerOpts {
	return func(p *Provisioner) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid startup timeout %v", timeout)
		}
		p.startupTimeout = timeout
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ProvisionerOpts {
	return func(p *Provisioner) error {
		if m == nil {
			return errors.New("no metrics supplied")
		}
		p.metrics = m
		return nil
	}
}

func NewProvisioner(rt runtime.ContainerRuntime, opts ...ProvisionerOpts) (*Provisioner, error) {
	if rt == nil {
		return nil, errors.New("no runtime supplied")
	}

	p := &Provisioner{
		runtime:        rt,
		startupTimeout: 2 * time.Minute,
		releaseTimeout: 30 * time.Second,
	}

	var errs error
	for _, opt := range opts {
		if err := opt(p); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return p, errs
}

// Provision starts a container for desc and blocks until it accepts
// connections or the startup timeout elapses. Nothing is retried and a failed
// attempt leaves no container behind.
func (p *Provisioner) Provision(ctx context.Context, name string, desc backend.Descriptor) (*RunningService, error) {
	if err := config.Validate(desc); err != nil {
		return nil, fmt.Errorf("%w: invalid descriptor: %v", ErrProvisioning, err)
	}
	kind := desc.Kind.String()

	log.Info().Str("image", desc.Image).Msg("Pulling image...")
	if err := p.runtime.Pull(ctx, desc.Image); err != nil {
		log.Error().Err(err).Str("image", desc.Image).Msg("could not pull image")
	}

	start := time.Now()
	log.Info().Str("image", desc.Image).Int("port", desc.HostBindPort).Msgf("Starting %s dev service", kind)
	id, err := p.runtime.Run(ctx, name, desc)
	if err != nil {
		if id == "" {
			id = p.findOrphan(name)
		}
		p.discard(id)
		p.metrics.ObserveFailed(kind)
		return nil, fmt.Errorf("%w: could not start %s on port %d: %v", ErrProvisioning, desc.Image, desc.HostBindPort, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, p.startupTimeout)
	defer cancel()
	if err := p.runtime.WaitReady(readyCtx, id, desc); err != nil {
		p.discard(id)
		p.metrics.ObserveFailed(kind)
		return nil, fmt.Errorf("%w: %s did not become ready: %v", ErrProvisioning, desc.Image, err)
	}

	host, err := p.runtime.Host(ctx)
	if err != nil {
		p.discard(id)
		p.metrics.ObserveFailed(kind)
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	if logs, err := p.runtime.Logs(ctx, id); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("could not fetch container logs")
	} else {
		log.Info().Str("id", id).Msg(logs)
	}

	p.metrics.ObserveStarted(kind, time.Since(start))
	log.Info().Str("id", id).Str("address", runtime.HostAddress(host, desc)).Msgf("%s dev service started", kind)

	return &RunningService{
		ID:      id,
		Kind:    desc.Kind,
		Address: Address{Host: host, Port: desc.HostBindPort},
		release: func() error { return p.release(id) },
	}, nil
}

func (p *Provisioner) release(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.releaseTimeout)
	defer cancel()

	var errs error
	if err := p.runtime.StopContainer(ctx, id); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		errs = multierr.Append(errs, err)
	}
	if err := p.runtime.DeleteContainer(ctx, id); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		errs = multierr.Append(errs, err)
	}
	p.metrics.ObserveReleased()
	log.Info().Str("id", id).Msg("Released dev service container")
	return errs
}

// findOrphan looks up a container this session created under name when the
// runtime failed before reporting its id.
func (p *Provisioner) findOrphan(name string) string {
	ctx, cancel := context.WithTimeout(context.Background(), p.releaseTimeout)
	defer cancel()

	id, err := p.runtime.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, runtime.ErrContainerNotFound) {
			log.Warn().Err(err).Str("name", name).Msg("could not look up container after failed start")
		}
		return ""
	}
	log.Warn().Str("id", id).Str("name", name).Msg("Found container left behind by failed start")
	return id
}

// discard removes a container that was created but failed to come up.
func (p *Provisioner) discard(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.releaseTimeout)
	defer cancel()
	if err := p.runtime.DeleteContainer(ctx, id); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		log.Error().Err(err).Str("id", id).Msg("could not remove failed container")
	}
}
