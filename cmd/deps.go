package main

import (
	"fmt"

	"devservices/internal/config"
	"devservices/internal/runtime"
	"devservices/internal/runtime/docker"
	"devservices/internal/runtime/testcontainers"

	"github.com/docker/docker/client"
)

func buildRuntime(conf config.AppConfig) (runtime.ContainerRuntime, error) {
	switch conf.RuntimeImpl {
	case config.RuntimeDocker:
		var opts []client.Opt
		if conf.Docker.DockerHost != "" {
			opts = append(opts, client.WithHost(conf.Docker.DockerHost))
		}
		return docker.NewDockerClient(opts...)
	case config.RuntimeTestcontainers:
		return testcontainers.New(testcontainers.WithStartupTimeout(conf.StartupTimeout))
	default:
		return nil, fmt.Errorf("unknown runtime %q", conf.RuntimeImpl)
	}
}

func buildReader(path string) (config.Reader, error) {
	return config.NewFileReader(path)
}
