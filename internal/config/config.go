package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	RuntimeDocker         = "docker"
	RuntimeTestcontainers = "testcontainers"
)

// AppConfig holds the process level settings of the dev services runner. The
// document database itself is configured through the application properties,
// see Reader.
type AppConfig struct {
	RuntimeImpl string `env:"DEVSERVICES_RUNTIME" validate:"required,oneof=docker testcontainers"`

	// DevMode and Enabled stand in for the host's launch mode and its global
	// dev services switch. Nothing is started unless both are set.
	DevMode bool `env:"DEVSERVICES_DEV_MODE"`
	Enabled bool `env:"DEVSERVICES_ENABLED"`

	StartupTimeout time.Duration `env:"DEVSERVICES_STARTUP_TIMEOUT" validate:"min=1s"`
	StatusAddr     string        `env:"DEVSERVICES_STATUS_ADDR"`
	LogLevel       string        `env:"DEVSERVICES_LOG_LEVEL" validate:"oneof=trace debug info warn error"`

	Docker struct {
		DockerHost string `env:"DOCKER_HOST"`
	}
}

func GetAppConfig() (AppConfig, error) {
	conf := getDefaultConfig()
	err := env.Parse(&conf)
	return conf, err
}

func getDefaultConfig() AppConfig {
	return AppConfig{
		RuntimeImpl:    RuntimeDocker,
		DevMode:        true,
		Enabled:        true,
		StartupTimeout: 2 * time.Minute,
		StatusAddr:     ":9999",
		LogLevel:       "info",
	}
}
