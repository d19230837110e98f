package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"devservices/internal"
	"devservices/internal/config"
	"devservices/internal/metrics"
	"devservices/internal/ports/http"
	"devservices/internal/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var propertiesPath string

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Err(err).Msg("invalid log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func loadConfig() config.AppConfig {
	conf, err := config.GetAppConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not get config")
	}

	if err := config.Validate(conf); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setupLogging(conf.LogLevel)
	return conf
}

func run(conf config.AppConfig) error {
	reader, err := buildReader(propertiesPath)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	promReg := prometheus.NewRegistry()
	provisioner, err := internal.NewProvisioner(rt,
		internal.WithStartupTimeout(conf.StartupTimeout),
		internal.WithMetrics(metrics.NewMetrics(promReg)),
	)
	if err != nil {
		return err
	}

	reg := registry.NewMemoryRegistry()
	devServices, err := internal.NewDevServices(reader, provisioner, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cond := internal.Conditions{DevMode: conf.DevMode, Enabled: conf.Enabled}
	svc, err := devServices.Build(ctx, cond)
	if err != nil {
		return err
	}
	if svc == nil {
		log.Info().Msg("No dev service started")
		return nil
	}
	defer func() {
		if err := reg.ReleaseAll(); err != nil {
			log.Error().Err(err).Msg("could not release dev services")
		}
	}()

	server, err := http.New(conf.StatusAddr, reg, devServices, http.WithGatherer(promReg))
	if err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	go func() {
		if err := server.Listen(ctx, wg); err != nil {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	<-ctx.Done()
	log.Warn().Msg("Received signal")
	stop()
	log.Warn().Msg("Waiting")
	wg.Wait()
	return nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "devservices",
		Short:         "Start a disposable document database for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&propertiesPath, "config", "application.properties", "application properties file")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Provision the configured database and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(loadConfig())
		},
	})

	root.AddCommand(newDescribeCommand())
	return root
}

func main() {
	setupLogging("info")

	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("devservices failed")
	}
}
