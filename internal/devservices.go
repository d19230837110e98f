package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"devservices/internal/backend"
	"devservices/internal/config"
	"devservices/internal/registry"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// ServiceName is the registry slot of the document database dev service.
const ServiceName = "jnosql-document"

// Conditions gate the build step: dev services only run outside of normal
// (production) launch mode and when globally enabled.
type Conditions struct {
	DevMode bool
	Enabled bool
}

func (c Conditions) Active() bool {
	return c.DevMode && c.Enabled
}

type DevServices struct {
	reader      config.Reader
	provisioner *Provisioner
	registrar   registry.Registrar

	mu      sync.Mutex
	running *RunningService
}

func NewDevServices(reader config.Reader, provisioner *Provisioner, registrar registry.Registrar) (*DevServices, error) {
	if reader == nil {
		return nil, errors.New("no config reader supplied")
	}

	if provisioner == nil {
		return nil, errors.New("no provisioner supplied")
	}

	if registrar == nil {
		return nil, errors.New("no registrar supplied")
	}

	return &DevServices{
		reader:      reader,
		provisioner: provisioner,
		registrar:   registrar,
	}, nil
}

// Describe selects the configured backend and builds its descriptor without
// starting anything.
func Describe(reader config.Reader) (backend.Descriptor, error) {
	name, present := reader.OptionalString(config.KeyDatabase)
	kind, err := backend.Select(name, present)
	if err != nil {
		return backend.Descriptor{}, err
	}

	log.Info().Msgf("%s === %s", config.KeyDatabase, name)
	return backend.Build(kind, reader)
}

// Build provisions and registers the document database dev service. It
// returns nil without error when the conditions are not met or the configured
// database is not supported. Calling it again while the service runs returns
// the same service.
func (d *DevServices) Build(ctx context.Context, cond Conditions) (*RunningService, error) {
	if !cond.Active() {
		log.Debug().Bool("dev_mode", cond.DevMode).Bool("enabled", cond.Enabled).Msg("dev services disabled")
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running != nil && !d.running.Released() {
		log.Info().Str("id", d.running.ID).Msg("Reusing running dev service")
		return d.running, nil
	}

	desc, err := Describe(d.reader)
	if errors.Is(err, backend.ErrUnsupportedBackend) {
		log.Warn().Err(err).Msgf("This extension does provide support only for %v document databases", backend.Supported())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	svc, err := d.provisioner.Provision(ctx, ServiceName, desc)
	if err != nil {
		return nil, err
	}

	if err := d.registrar.Register(ServiceName, svc.ID, svc.Release, map[string]string{}); err != nil {
		if releaseErr := svc.Release(); releaseErr != nil {
			err = multierr.Append(err, releaseErr)
		}
		return nil, fmt.Errorf("could not register %s: %w", ServiceName, err)
	}

	d.running = svc
	return svc, nil
}

// Running returns the current service, nil if none is running.
func (d *DevServices) Running() *RunningService {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running == nil || d.running.Released() {
		return nil
	}
	return d.running
}
