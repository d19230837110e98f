package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAppConfig_Defaults(t *testing.T) {
	conf, err := GetAppConfig()
	require.NoError(t, err)

	assert.Equal(t, RuntimeDocker, conf.RuntimeImpl)
	assert.True(t, conf.DevMode)
	assert.True(t, conf.Enabled)
	assert.Equal(t, 2*time.Minute, conf.StartupTimeout)
	assert.NoError(t, Validate(conf))
}

func TestGetAppConfig_Env(t *testing.T) {
	t.Setenv("DEVSERVICES_RUNTIME", RuntimeTestcontainers)
	t.Setenv("DEVSERVICES_DEV_MODE", "false")
	t.Setenv("DEVSERVICES_STARTUP_TIMEOUT", "30s")
	t.Setenv("DOCKER_HOST", "tcp://10.0.0.2:2375")

	conf, err := GetAppConfig()
	require.NoError(t, err)

	assert.Equal(t, RuntimeTestcontainers, conf.RuntimeImpl)
	assert.False(t, conf.DevMode)
	assert.Equal(t, 30*time.Second, conf.StartupTimeout)
	assert.Equal(t, "tcp://10.0.0.2:2375", conf.Docker.DockerHost)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{name: "unknown runtime", mutate: func(c *AppConfig) { c.RuntimeImpl = "podman" }, wantErr: true},
		{name: "tiny timeout", mutate: func(c *AppConfig) { c.StartupTimeout = time.Millisecond }, wantErr: true},
		{name: "bad log level", mutate: func(c *AppConfig) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := getDefaultConfig()
			tt.mutate(&conf)
			err := Validate(conf)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
