// Package document binds an already constructed database client to the
// document configuration contract used by the application's data layer.
package document

import (
	"errors"
	"strconv"
)

// Settings are the connection settings a Configuration is applied with.
type Settings map[string]string

// ManagerFactory hands out document managers backed by a single client.
type ManagerFactory interface {
	Close() error
}

type Configuration interface {
	Apply(settings Settings) (ManagerFactory, error)
}

// ClientConfiguration satisfies Configuration with a client supplied up front.
// Settings are ignored: the client is already connected.
type ClientConfiguration[C any] struct {
	client     C
	newFactory func(C) ManagerFactory
}

func NewClientConfiguration[C any](client C, newFactory func(C) ManagerFactory) (*ClientConfiguration[C], error) {
	if any(client) == nil {
		return nil, errors.New("no client supplied")
	}
	if newFactory == nil {
		return nil, errors.New("no factory constructor supplied")
	}
	return &ClientConfiguration[C]{client: client, newFactory: newFactory}, nil
}

func (c *ClientConfiguration[C]) Apply(_ Settings) (ManagerFactory, error) {
	return c.newFactory(c.client), nil
}

const (
	SettingHost = "host"
	SettingPort = "port"
)

// SettingsFor returns the settings pointing at a provisioned service.
func SettingsFor(host string, port int) Settings {
	return Settings{
		SettingHost: host,
		SettingPort: strconv.Itoa(port),
	}
}
