package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"devservices/internal/backend"
	"devservices/internal/runtime"
)

// fakeRuntime keeps containers in memory and refuses to bind a host port twice.
type fakeRuntime struct {
	mu sync.Mutex

	nextID     int
	containers map[string]backend.Descriptor
	boundPorts map[int]string
	names      map[string]string

	pullErr  error
	readyErr error
	logsErr  error
	// lostRunErr fails Run after the container exists, without reporting its id.
	lostRunErr error

	pulls   []string
	stops   []string
	deletes []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers: map[string]backend.Descriptor{},
		boundPorts: map[int]string{},
		names:      map[string]string{},
	}
}

func (f *fakeRuntime) Pull(_ context.Context, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, image)
	return f.pullErr
}

// Run creates the container before binding, like the docker engine does, so
// a bind conflict leaves a created container behind.
func (f *fakeRuntime) Run(_ context.Context, name string, desc backend.Descriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("container-%d", f.nextID)
	f.containers[id] = desc

	if owner, ok := f.boundPorts[desc.HostBindPort]; ok {
		return id, fmt.Errorf("Bind for 0.0.0.0:%d failed: port is already allocated (by %s)", desc.HostBindPort, owner)
	}
	f.boundPorts[desc.HostBindPort] = id
	f.names[name] = id
	if f.lostRunErr != nil {
		return "", f.lostRunErr
	}
	return id, nil
}

func (f *fakeRuntime) WaitReady(ctx context.Context, id string, _ backend.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[id]; !ok {
		return runtime.ErrContainerNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.readyErr
}

func (f *fakeRuntime) Logs(_ context.Context, id string) (string, error) {
	if f.logsErr != nil {
		return "", f.logsErr
	}
	return strings.Join([]string{"starting " + id, "ready"}, "\n"), nil
}

func (f *fakeRuntime) Host(context.Context) (string, error) {
	return "localhost", nil
}

func (f *fakeRuntime) FindByName(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.names[name]
	if !ok {
		return "", runtime.ErrContainerNotFound
	}
	return id, nil
}

func (f *fakeRuntime) StopContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[id]; !ok {
		return runtime.ErrContainerNotFound
	}
	f.stops = append(f.stops, id)
	return nil
}

func (f *fakeRuntime) DeleteContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	desc, ok := f.containers[id]
	if !ok {
		return runtime.ErrContainerNotFound
	}
	delete(f.containers, id)
	if f.boundPorts[desc.HostBindPort] == id {
		delete(f.boundPorts, desc.HostBindPort)
	}
	for name, known := range f.names {
		if known == id {
			delete(f.names, name)
		}
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRuntime) Close() error {
	return nil
}

func (f *fakeRuntime) containerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// occupy simulates another process holding a host port.
func (f *fakeRuntime) occupy(port int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundPorts[port] = "someone-else"
}

var errNotReady = errors.New("connection refused")
