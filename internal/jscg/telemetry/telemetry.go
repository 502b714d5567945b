// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry instruments the pipeline: one OpenTelemetry span per
// stage (parse, decorate, bind, flow, link, strategy, extract) and
// Prometheus counters/histograms for file and edge throughput, mirroring
// the rest of the Aleutian stack's per-package tracer + promauto metrics
// convention.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jscg.pipeline")

// InitStdoutTracing installs a batching SDK TracerProvider that writes
// spans to w as pretty-printed JSON, for the -trace CLI flag's
// human/CI-inspectable span dump. It returns a shutdown func the caller
// must invoke after the run completes, to flush the last batch; a CLI
// invocation that doesn't opt in to tracing never calls this, leaving the
// package-level otel.Tracer on the no-op global provider.
func InitStdoutTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("jscg.pipeline")
	return tp.Shutdown, nil
}

var (
	filesParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jscg",
		Subsystem: "parse",
		Name:      "files_total",
		Help:      "Files processed by outcome: ok, error, skipped",
	}, []string{"outcome"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jscg",
		Subsystem: "pipeline",
		Name:      "stage_latency_seconds",
		Help:      "Latency of each pipeline stage",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"stage"})

	edgesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jscg",
		Subsystem: "flow",
		Name:      "edges_added_total",
		Help:      "Total flow-graph edges added across the run",
	})

	callbackArgsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jscg",
		Subsystem: "decorate",
		Name:      "callback_args_total",
		Help:      "Function arguments classified as callbacks (-countCB)",
	})
)

// RecordFileParsed increments the file-throughput counter for outcome
// ("ok", "error", or "skipped").
func RecordFileParsed(outcome string) {
	filesParsedTotal.WithLabelValues(outcome).Inc()
}

// RecordEdgesAdded adds n to the cumulative edge counter.
func RecordEdgesAdded(n int) {
	if n > 0 {
		edgesAddedTotal.Add(float64(n))
	}
}

// RecordCallbackArg increments the callback-argument counter (-countCB).
func RecordCallbackArg() {
	callbackArgsTotal.Inc()
}

// StartStage opens a span named "jscg.<stage>" and returns a function
// that ends it, recording elapsed time into stageLatency and the span's
// status. Call pattern:
//
//	ctx, end := telemetry.StartStage(ctx, "flow")
//	defer end(nil)
func StartStage(ctx context.Context, stage string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "jscg."+stage, trace.WithAttributes(attribute.String("stage", stage)))
	return ctx, func(err error) {
		stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
