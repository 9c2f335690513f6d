// Package telemetry builds the OpenTelemetry meter provider of the engine
// and serves its metrics in the Prometheus exposition format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"teamsync/pkg/logging"
)

const (
	// DefaultServiceName is reported as service.name.
	DefaultServiceName = "teamsync"

	// MetricsPath is the HTTP path metrics are served on.
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// ProviderOption configures NewProvider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	serviceName    string
	serviceVersion string
	enabled        bool
}

// WithServiceName sets the service name resource attribute.
func WithServiceName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceName = name
	}
}

// WithServiceVersion sets the service version resource attribute.
func WithServiceVersion(version string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceVersion = version
	}
}

// WithEnabled turns metric export on.
func WithEnabled(enabled bool) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.enabled = enabled
	}
}

// Provider owns the meter provider and the Prometheus registry behind it.
type Provider struct {
	meterProvider metric.MeterProvider
	sdkProvider   *sdkmetric.MeterProvider
	registry      *prometheus.Registry
}

// NewProvider creates a Provider. When export is disabled the meter
// provider is a no-op and Handler serves 404.
// The caller is responsible for calling Shutdown.
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	cfg := &providerConfig{
		serviceName:    DefaultServiceName,
		serviceVersion: "unknown",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.enabled {
		logging.Debug("Telemetry", "Metrics disabled, using no-op meter provider")
		return &Provider{meterProvider: noop.NewMeterProvider()}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.serviceName),
		attribute.String("service.version", cfg.serviceVersion),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	logging.Info("Telemetry", "Metrics initialized for %s %s", cfg.serviceName, cfg.serviceVersion)
	return &Provider{meterProvider: mp, sdkProvider: mp, registry: registry}, nil
}

// Enabled reports whether metrics are exported.
func (p *Provider) Enabled() bool {
	return p.sdkProvider != nil
}

// MeterProvider returns the provider instruments are created from.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Serve serves Handler on addr at MetricsPath until ctx is done.
func (p *Provider) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, p.Handler())

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	logging.Info("Telemetry", "Serving metrics on http://%s%s", lis.Addr(), MetricsPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	}
}

// Shutdown flushes and releases the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.Shutdown(ctx)
}
