package testcontainers

import (
	"testing"
	"time"

	"devservices/internal/backend"
	"devservices/internal/runtime"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	desc := backend.Descriptor{
		Kind:          backend.ArangoDB,
		Image:         "arangodb:latest",
		ContainerPort: 8529,
		HostBindPort:  18529,
		Env:           map[string]string{"ARANGO_ROOT_PASSWORD": "p"},
		ReadinessPath: "/_api/version",
	}

	req, err := buildRequest("jnosql-document", desc, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "arangodb:latest", req.Image)
	assert.Equal(t, []string{"8529/tcp"}, req.ExposedPorts)
	assert.Equal(t, "p", req.Env["ARANGO_ROOT_PASSWORD"])
	assert.Equal(t, "jnosql-document", req.Labels[runtime.LabelNameKey])
	assert.NotNil(t, req.WaitingFor)

	require.NotNil(t, req.HostConfigModifier)
	hc := &container.HostConfig{}
	req.HostConfigModifier(hc)
	bindings := hc.PortBindings[nat.Port("8529/tcp")]
	require.Len(t, bindings, 1)
	assert.Equal(t, "0.0.0.0", bindings[0].HostIP)
	assert.Equal(t, "18529", bindings[0].HostPort)
}

func TestWithStartupTimeout_Invalid(t *testing.T) {
	r := &Runtime{}
	assert.Error(t, WithStartupTimeout(0)(r))
	assert.NoError(t, WithStartupTimeout(time.Second)(r))
	assert.Equal(t, time.Second, r.startupTimeout)
}
