package runtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"devservices/internal/backend"

	"github.com/google/uuid"
)

var ErrContainerNotFound = errors.New("container not found")

const (
	LabelNameKey    = "devservices_name"
	LabelSessionKey = "devservices_session"
)

// SessionID tags every container started by this process.
var SessionID = uuid.NewString()

type ContainerRuntime interface {
	Pull(ctx context.Context, image string) error
	// Run creates and starts a container for desc with its host port bound
	// statically. When the container was created but could not be started
	// the returned id is not empty.
	Run(ctx context.Context, name string, desc backend.Descriptor) (string, error)
	WaitReady(ctx context.Context, id string, desc backend.Descriptor) error
	Logs(ctx context.Context, id string) (string, error)
	Host(ctx context.Context) (string, error)
	FindByName(ctx context.Context, name string) (string, error)
	StopContainer(ctx context.Context, id string) error
	DeleteContainer(ctx context.Context, id string) error
	Close() error
}

func Labels(name string) map[string]string {
	return map[string]string{
		LabelNameKey:    name,
		LabelSessionKey: SessionID,
		"app":           "devservices",
	}
}

// HostAddress joins host and the descriptor's bound port.
func HostAddress(host string, desc backend.Descriptor) string {
	return net.JoinHostPort(host, strconv.Itoa(desc.HostBindPort))
}

// IsReadyStatus accepts anything but server errors: ArangoDB answers 401 once
// it is up and a password is set.
func IsReadyStatus(status int) bool {
	return status > 0 && status < http.StatusInternalServerError
}

const DefaultStopTimeout = 10 * time.Second
