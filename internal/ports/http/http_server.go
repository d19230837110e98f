package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"devservices/internal"
	"devservices/internal/config"
	"devservices/internal/ports"
	"devservices/internal/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

type StatusServer struct {
	address string

	registry    *registry.MemoryRegistry
	devServices *internal.DevServices
	gatherer    prometheus.Gatherer
}

type StatusServerOpts func(*StatusServer) error

func WithGatherer(gatherer prometheus.Gatherer) StatusServerOpts {
	return func(s *StatusServer) error {
		if gatherer == nil {
			return errors.New("no gatherer provided")
		}
		s.gatherer = gatherer
		return nil
	}
}

func New(address string, reg *registry.MemoryRegistry, devServices *internal.DevServices, opts ...StatusServerOpts) (*StatusServer, error) {
	if len(address) == 0 {
		return nil, errors.New("empty address provided")
	}

	if reg == nil {
		return nil, errors.New("no registry provided")
	}

	if devServices == nil {
		return nil, errors.New("no dev services provided")
	}

	s := &StatusServer{
		address:     address,
		registry:    reg,
		devServices: devServices,
	}

	var errs error
	for _, opt := range opts {
		if err := opt(s); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return s, errs
}

func readRequest(r *http.Request, target any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	_ = r.Body.Close()

	if len(data) > 0 {
		if err := json.Unmarshal(data, target); err != nil {
			return err
		}
	}
	return config.Validate(target)
}

func (s *StatusServer) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.registry.List()
	if err != nil {
		log.Error().Err(err).Msg("can not list dev services")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	running := s.devServices.Running()
	resp := make([]ports.ServiceResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, ports.NewServiceResponse(rec, running))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *StatusServer) get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := ports.GetServiceRequest{Name: r.URL.Query().Get("name")}
	if err := readRequest(r, &req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	rec, err := s.registry.Find(req.Name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ports.NewServiceResponse(*rec, s.devServices.Running()))
}

func (s *StatusServer) release(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := ports.ReleaseServiceRequest{}
	if err := readRequest(r, &req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.registry.Release(req.Name); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
		} else {
			log.Error().Err(err).Str("name", req.Name).Msg("could not release dev service")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *StatusServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", s.list)
	mux.HandleFunc("/get", s.get)
	mux.HandleFunc("/release", s.release)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *StatusServer) Listen(ctx context.Context, wg *sync.WaitGroup) error {
	wg.Add(1)
	defer wg.Done()

	server := http.Server{
		Addr:              s.address,
		Handler:           s.handler(),
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("can not start http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
