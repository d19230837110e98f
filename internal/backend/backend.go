package backend

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"devservices/internal/config"
)

var (
	ErrUnsupportedBackend = errors.New("unsupported document database")
	ErrMalformedHost      = errors.New("malformed host")
)

type Kind int

const (
	CouchDB Kind = iota + 1
	ArangoDB
)

var kindNames = map[Kind]string{
	CouchDB:  "couchdb",
	ArangoDB: "arangodb",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Supported returns the recognized backend names in a stable order.
func Supported() []string {
	names := make([]string, 0, len(kindNames))
	for _, name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select maps the configured database name to a Kind. The match is exact and
// case sensitive, an absent name is never defaulted.
func Select(name string, present bool) (Kind, error) {
	if !present {
		return 0, fmt.Errorf("%w: no database configured, supported are %v", ErrUnsupportedBackend, Supported())
	}
	for kind, known := range kindNames {
		if known == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q, supported are %v", ErrUnsupportedBackend, name, Supported())
}

// Descriptor describes the container to start for a backend. It is built once
// and only read afterwards.
type Descriptor struct {
	Kind          Kind              `validate:"required"`
	Image         string            `validate:"required"`
	ContainerPort int               `validate:"min=1,max=65535"`
	HostBindPort  int               `validate:"min=1,max=65535"`
	Env           map[string]string `validate:"required"`
	// ReadinessPath is probed over HTTP on the container port until the
	// engine answers.
	ReadinessPath string `validate:"required,startswith=/"`
}

// EnvList returns the environment as sorted KEY=VALUE pairs.
func (d Descriptor) EnvList() []string {
	env := make([]string, 0, len(d.Env))
	for k, v := range d.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

type builderFunc func(config.Reader) (Descriptor, error)

var builders = map[Kind]builderFunc{
	CouchDB:  buildCouchDB,
	ArangoDB: buildArangoDB,
}

// Build reads the backend specific keys and assembles its descriptor. It never
// starts anything.
func Build(kind Kind, reader config.Reader) (Descriptor, error) {
	build, ok := builders[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrUnsupportedBackend, kind)
	}

	desc, err := build(reader)
	if err != nil {
		return Descriptor{}, err
	}

	if err := config.Validate(desc); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s descriptor: %v", config.ErrInvalidConfiguration, kind, err)
	}
	return desc, nil
}

const (
	couchDBImage = "couchdb:latest"
	couchDBPort  = 5984

	arangoDBImage = "arangodb:latest"
	arangoDBPort  = 8529
)

func buildCouchDB(reader config.Reader) (Descriptor, error) {
	bindPort, err := reader.RequiredInt(config.KeyCouchDBPort)
	if err != nil {
		return Descriptor{}, err
	}
	password, err := reader.RequiredString(config.KeyCouchDBPassword)
	if err != nil {
		return Descriptor{}, err
	}
	username, err := reader.RequiredString(config.KeyCouchDBUsername)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		Kind:          CouchDB,
		Image:         couchDBImage,
		ContainerPort: couchDBPort,
		HostBindPort:  bindPort,
		Env: map[string]string{
			"COUCHDB_PASSWORD": password,
			"COUCHDB_USER":     username,
		},
		ReadinessPath: "/_up",
	}, nil
}

// ArangoDB only takes the root password, a configured username is ignored.
func buildArangoDB(reader config.Reader) (Descriptor, error) {
	host, err := reader.RequiredString(config.KeyArangoDBHost)
	if err != nil {
		return Descriptor{}, err
	}
	bindPort, err := ParseHostPort(host)
	if err != nil {
		return Descriptor{}, err
	}
	password, err := reader.RequiredString(config.KeyArangoDBPassword)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		Kind:          ArangoDB,
		Image:         arangoDBImage,
		ContainerPort: arangoDBPort,
		HostBindPort:  bindPort,
		Env: map[string]string{
			"ARANGO_ROOT_PASSWORD": password,
		},
		ReadinessPath: "/_api/version",
	}, nil
}

// ParseHostPort takes the port out of a "hostname:port" string, i.e. the
// second segment when splitting on ':'.
func ParseHostPort(host string) (int, error) {
	parts := strings.Split(host, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: %q has no port", ErrMalformedHost, host)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedHost, host, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %q: port %d out of range", ErrMalformedHost, host, port)
	}
	return port, nil
}
