package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "autosubrt-server-go"

var (
	instrumentsMu sync.Mutex
	counters      map[string]metric.Float64Counter
	durations     metric.Float64Histogram
)

func resetInstruments() {
	instrumentsMu.Lock()
	counters = make(map[string]metric.Float64Counter)
	durations = nil
	instrumentsMu.Unlock()
}

func counter(name string) (metric.Float64Counter, error) {
	instrumentsMu.Lock()
	defer instrumentsMu.Unlock()
	if counters == nil {
		counters = make(map[string]metric.Float64Counter)
	}
	if c, ok := counters[name]; ok {
		return c, nil
	}
	c, err := otel.Meter(instrumentationName).Float64Counter(name)
	if err != nil {
		return nil, err
	}
	counters[name] = c
	return c, nil
}

func durationHistogram() (metric.Float64Histogram, error) {
	instrumentsMu.Lock()
	defer instrumentsMu.Unlock()
	if durations != nil {
		return durations, nil
	}
	h, err := otel.Meter(instrumentationName).Float64Histogram(
		"autosubrt.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of instrumented operations"),
	)
	if err != nil {
		return nil, err
	}
	durations = h
	return h, nil
}

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// StartSpan opens a span around an operation. The returned func ends it and
// records the outcome.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	if logger == nil && !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}
	if logger != nil {
		logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
			slog.String("component", component),
			slog.String("operation", operation),
		)
	}

	var endSpan func(error)
	if cfg.Enabled {
		spanCtx, span := otel.Tracer(instrumentationName).Start(ctx, component+"."+operation)
		span.SetAttributes(attrs...)
		ctx = spanCtx
		endSpan = func(err error) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}
	}

	return ctx, func(err error) {
		elapsed := time.Since(start)
		if endSpan != nil {
			endSpan(err)
			if h, herr := durationHistogram(); herr == nil {
				outcome := "ok"
				if err != nil {
					outcome = "error"
				}
				h.Record(ctx, elapsed.Seconds(), metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...))
			}
		}
		if logger == nil {
			return
		}

		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}
		logAttrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			logAttrs = append(logAttrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", logAttrs...)
	}
}

// RecordMetric adds value to the named counter.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if cfg.Enabled {
		if c, err := counter(name); err == nil {
			kvs := make([]attribute.KeyValue, 0, len(keys))
			for _, k := range keys {
				kvs = append(kvs, attribute.String(k, labels[k]))
			}
			c.Add(ctx, value, metric.WithAttributes(kvs...))
		}
	}

	if logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
