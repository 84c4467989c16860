// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys on exported spans and metrics.
const (
	AttrEventKey   = attribute.Key("bazaar.event.key")
	AttrEventValue = attribute.Key("bazaar.event.value")
)

// OTelSink exports events as span events and counts them per key.
type OTelSink struct {
	tracer  trace.Tracer
	counter metric.Int64Counter
}

// NewOTelSink creates a sink recording on tracer and meter.
func NewOTelSink(tracer trace.Tracer, meter metric.Meter) (*OTelSink, error) {
	counter, err := meter.Int64Counter(
		"bazaar_cli_events_total",
		metric.WithDescription("Telemetry events emitted by the CLI"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event counter: %w", err)
	}
	return &OTelSink{tracer: tracer, counter: counter}, nil
}

// Emit adds the event to the active span in ctx. Without a recording span a
// short span named after the event is created.
func (s *OTelSink) Emit(ctx context.Context, event Event) {
	attrs := []attribute.KeyValue{
		AttrEventKey.String(event.Key),
		AttrEventValue.String(event.Value),
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(event.Key, trace.WithAttributes(attrs...))
	} else {
		_, span = s.tracer.Start(ctx, event.Key, trace.WithAttributes(attrs...))
		span.End()
	}

	s.counter.Add(ctx, 1, metric.WithAttributes(AttrEventKey.String(event.Key)))
}
