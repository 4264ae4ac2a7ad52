package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// OTelFactory is a MetricFactory backed by an OpenTelemetry meter.
// Instrument creation errors fall back to no-op instruments.
type OTelFactory struct {
	meter metric.Meter
}

// NewOTelFactory returns a factory on meter. A nil meter uses the global
// provider's "github.com/xraph/stockledger" meter.
func NewOTelFactory(meter metric.Meter) *OTelFactory {
	if meter == nil {
		meter = otel.Meter("github.com/xraph/stockledger")
	}
	return &OTelFactory{meter: meter}
}

// Counter implements MetricFactory.
func (f *OTelFactory) Counter(name string) Counter {
	c, err := f.meter.Float64Counter(name)
	if err != nil {
		otel.Handle(err)
		c = noop.Float64Counter{}
	}
	return otelCounter{c}
}

// Histogram implements MetricFactory.
func (f *OTelFactory) Histogram(name string) Histogram {
	h, err := f.meter.Float64Histogram(name)
	if err != nil {
		otel.Handle(err)
		h = noop.Float64Histogram{}
	}
	return otelHistogram{h}
}

type otelCounter struct{ c metric.Float64Counter }

func (c otelCounter) Inc()          { c.Add(1) }
func (c otelCounter) Add(v float64) { c.c.Add(context.Background(), v) }

type otelHistogram struct{ h metric.Float64Histogram }

func (h otelHistogram) Observe(v float64) { h.h.Record(context.Background(), v) }
