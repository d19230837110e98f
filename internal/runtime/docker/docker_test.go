package docker

import (
	"testing"

	"devservices/internal/backend"
	"devservices/internal/runtime"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func couchDescriptor() backend.Descriptor {
	return backend.Descriptor{
		Kind:          backend.CouchDB,
		Image:         "couchdb:latest",
		ContainerPort: 5984,
		HostBindPort:  15984,
		Env:           map[string]string{"COUCHDB_USER": "u", "COUCHDB_PASSWORD": "p"},
		ReadinessPath: "/_up",
	}
}

func TestBuildConfigs(t *testing.T) {
	containerConfig, hostConf, err := buildConfigs("jnosql-document", couchDescriptor())
	require.NoError(t, err)

	assert.Equal(t, "couchdb:latest", containerConfig.Image)
	assert.Equal(t, []string{"COUCHDB_PASSWORD=p", "COUCHDB_USER=u"}, containerConfig.Env)
	assert.Contains(t, containerConfig.ExposedPorts, nat.Port("5984/tcp"))
	assert.Equal(t, "jnosql-document", containerConfig.Labels[runtime.LabelNameKey])
	assert.Equal(t, runtime.SessionID, containerConfig.Labels[runtime.LabelSessionKey])

	bindings := hostConf.PortBindings[nat.Port("5984/tcp")]
	require.Len(t, bindings, 1)
	assert.Equal(t, "0.0.0.0", bindings[0].HostIP)
	assert.Equal(t, "15984", bindings[0].HostPort)
}

func TestDaemonHostname(t *testing.T) {
	tests := []struct {
		daemonHost string
		want       string
	}{
		{daemonHost: "unix:///var/run/docker.sock", want: "localhost"},
		{daemonHost: "npipe:////./pipe/docker_engine", want: "localhost"},
		{daemonHost: "tcp://10.0.0.2:2375", want: "10.0.0.2"},
		{daemonHost: "https://docker.example.com:2376", want: "docker.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.daemonHost, func(t *testing.T) {
			got, err := daemonHostname(tt.daemonHost)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
