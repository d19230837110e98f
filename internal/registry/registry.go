package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered")
)

// Registrar takes ownership of a running service's teardown.
type Registrar interface {
	Register(name, id string, release func() error, metadata map[string]string) error
}

type Record struct {
	Name         string
	ID           string
	Metadata     map[string]string
	RegisteredAt time.Time

	release func() error
}

func (r Record) Release() error {
	if r.release == nil {
		return nil
	}
	return r.release()
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{db: map[string]Record{}}
}

type MemoryRegistry struct {
	mu sync.Mutex
	db map[string]Record
}

func (d *MemoryRegistry) Register(name, id string, release func() error, metadata map[string]string) error {
	if name == "" || id == "" {
		return errors.New("name and id must not be empty")
	}
	if release == nil {
		return errors.New("no release function supplied")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.db[name]; ok {
		return fmt.Errorf("%w: %s (container %s)", ErrAlreadyRegistered, name, existing.ID)
	}

	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	d.db[name] = Record{
		Name:         name,
		ID:           id,
		Metadata:     md,
		RegisteredAt: time.Now(),
		release:      release,
	}
	log.Info().Str("name", name).Str("id", id).Msg("Registered dev service")
	return nil
}

func (d *MemoryRegistry) Find(name string) (*Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.db[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (d *MemoryRegistry) List() ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ret := make([]Record, 0, len(d.db))
	for _, r := range d.db {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret, nil
}

// Release tears down the named service and forgets it.
func (d *MemoryRegistry) Release(name string) error {
	d.mu.Lock()
	r, ok := d.db[name]
	delete(d.db, name)
	d.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return r.Release()
}

// ReleaseAll tears down every registered service, continuing past failures.
func (d *MemoryRegistry) ReleaseAll() error {
	d.mu.Lock()
	records := d.db
	d.db = map[string]Record{}
	d.mu.Unlock()

	var errs error
	for name, r := range records {
		log.Info().Str("name", name).Str("id", r.ID).Msg("Releasing dev service")
		if err := r.Release(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs
}
