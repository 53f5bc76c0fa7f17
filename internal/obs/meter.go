package obs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// VendorMeter records vendor fetch durations through the global OpenTelemetry
// meter provider.
type VendorMeter struct {
	duration metric.Float64Histogram
}

// NewVendorMeter creates the instruments. Without a configured provider the
// global no-op meter is used.
func NewVendorMeter() (*VendorMeter, error) {
	h, err := otel.Meter("langganan/plans").Float64Histogram(
		"vendor.fetch.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Vendor plan fetch duration."),
	)
	if err != nil {
		return nil, err
	}
	return &VendorMeter{duration: h}, nil
}

// Record stores one fetch observation.
func (m *VendorMeter) Record(ctx context.Context, product, result string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Record(ctx, DurationMillis(d), metric.WithAttributes(
		attribute.String("product", product),
		attribute.String("result", result),
	))
}
