package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sumatoshi-tech/pystyle"

// Providers is what a pystyle command needs to report on its own run.
type Providers struct {
	// Tracer starts the per-run, per-file and per-request spans.
	Tracer trace.Tracer

	// Meter backs LintMetrics and REDMetrics.
	Meter metric.Meter

	// Logger writes to Config.LogOutput through a LintHandler.
	Logger *slog.Logger

	// Shutdown flushes spans, writes the metrics textfile when one is
	// configured and stops the exporters. Call it once before exit.
	Shutdown func(ctx context.Context) error
}

type closer func(ctx context.Context) error

// Init sets up logging, tracing and metrics for one pystyle process. Without
// an OTLP endpoint or a metrics textfile only the logger is live.
func Init(cfg Config) (Providers, error) {
	providers := Providers{
		Tracer:   nooptrace.NewTracerProvider().Tracer(instrumentationName),
		Meter:    noopmetric.NewMeterProvider().Meter(instrumentationName),
		Logger:   newLogger(cfg),
		Shutdown: func(context.Context) error { return nil },
	}

	if cfg.OTLPEndpoint == "" && cfg.MetricsTextfile == "" {
		return providers, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return Providers{}, fmt.Errorf("build otel resource: %w", err)
	}

	var closers []closer

	if cfg.OTLPEndpoint != "" {
		tracerProvider, traceErr := newTracerProvider(ctx, cfg, res)
		if traceErr != nil {
			return Providers{}, traceErr
		}

		providers.Tracer = tracerProvider.Tracer(instrumentationName)
		closers = append(closers, tracerProvider.Shutdown)
	}

	meterProvider, flush, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, errors.Join(err, closeAll(ctx, closers))
	}

	providers.Meter = meterProvider.Meter(instrumentationName)
	providers.Shutdown = shutdownWithin(cfg.shutdownTimeout(), append(closers, flush))

	return providers, nil
}

// shutdownWithin runs every closer under one deadline.
func shutdownWithin(timeout time.Duration, closers []closer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return closeAll(deadlineCtx, closers)
	}
}

func closeAll(ctx context.Context, closers []closer) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		errs = append(errs, c(ctx))
	}

	return errors.Join(errs...)
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("pystyle.mode", string(cfg.Mode)),
	}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	return attrs
}

func newLogger(cfg Config) *slog.Logger {
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewLintHandler(inner, cfg.Mode, cfg.Environment))
}

// newTracerProvider exports spans over OTLP gRPC. A zero SampleRatio keeps
// every trace; otherwise root spans are sampled by trace ID.
func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	root := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 {
		root = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(root)),
	), nil
}

// newMeterProvider attaches an OTLP periodic reader and, for the check
// command's textfile, a Prometheus reader. The returned closer writes the
// textfile before stopping the provider.
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (metric.MeterProvider, closer, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}

		if len(cfg.OTLPHeaders) > 0 {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
		}

		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	var writeTextfile closer = func(context.Context) error { return nil }

	if cfg.MetricsTextfile != "" {
		reader, registry, err := newPrometheusReader()
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, sdkmetric.WithReader(reader))
		writeTextfile = func(context.Context) error {
			return WriteTextfile(cfg.MetricsTextfile, registry)
		}
	}

	provider := sdkmetric.NewMeterProvider(opts...)

	return provider, func(ctx context.Context) error {
		return errors.Join(writeTextfile(ctx), provider.Shutdown(ctx))
	}, nil
}

// ParseOTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS style input,
// "key=value,key=value". Pairs without "=" are skipped; nil means none.
func ParseOTLPHeaders(raw string) map[string]string {
	headers := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if len(headers) == 0 {
		return nil
	}

	return headers
}
