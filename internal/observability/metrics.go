package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/retendo/account/internal/config"
)

type appMetrics struct {
	nascRequestCounter         metric.Int64Counter
	tokenValidationCounter     metric.Int64Counter
	repositoryOperationCounter metric.Int64Counter
	integrityViolationCounter  metric.Int64Counter
	deviceRegistrationCounter  metric.Int64Counter
}

var (
	metricsMu sync.RWMutex
	metrics   *appMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("account")
	nascCounter, err := meter.Int64Counter("nasc.requests")
	if err != nil {
		return nil, err
	}
	tokenCounter, err := meter.Int64Counter("auth.credential.resolutions")
	if err != nil {
		return nil, err
	}
	repoCounter, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	integrityCounter, err := meter.Int64Counter("device.integrity_violations")
	if err != nil {
		return nil, err
	}
	registrationCounter, err := meter.Int64Counter("device.registrations")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	metrics = &appMetrics{
		nascRequestCounter:         nascCounter,
		tokenValidationCounter:     tokenCounter,
		repositoryOperationCounter: repoCounter,
		integrityViolationCounter:  integrityCounter,
		deviceRegistrationCounter:  registrationCounter,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func load() *appMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

// RecordNASCRequest counts one NASC exchange by action and result code.
func RecordNASCRequest(ctx context.Context, action, returnCode string) {
	m := load()
	if m == nil {
		return
	}
	m.nascRequestCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("returncd", returnCode),
		),
	)
}

// RecordCredentialResolution counts one Basic/Bearer credential resolution.
func RecordCredentialResolution(ctx context.Context, scheme, outcome string) {
	m := load()
	if m == nil {
		return
	}
	m.tokenValidationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("scheme", scheme),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordRepositoryOperation counts one store operation by entity and outcome.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := load()
	if m == nil {
		return
	}
	m.repositoryOperationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordIntegrityViolation counts a serial/certificate/device-id mismatch,
// which indicates a possible spoofing attempt.
func RecordIntegrityViolation(ctx context.Context, kind string) {
	m := load()
	if m == nil {
		return
	}
	m.integrityViolationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDeviceRegistration counts a first-seen device record creation.
func RecordDeviceRegistration(ctx context.Context, model string) {
	m := load()
	if m == nil {
		return
	}
	m.deviceRegistrationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}
