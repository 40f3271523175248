package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	sessionkit "github.com/halyard-auth/sessionkit"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is what the exporter needs from an Engine. Tests substitute
// a fake.
type metricsSource interface {
	MetricsSnapshot() sessionkit.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   sessionkit.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{sessionkit.MetricSessionCreated, "sessionkit_session_created_total", "Sessions sealed into cookies."},
	{sessionkit.MetricSessionRefreshSuccess, "sessionkit_session_refresh_success_total", "Sliding-window refreshes that produced a new cookie."},
	{sessionkit.MetricSessionRefreshFailure, "sessionkit_session_refresh_failure_total", "Refresh attempts rejected by the directory service."},
	{sessionkit.MetricSessionExpired, "sessionkit_session_expired_total", "Presented sessions past their refresh deadline."},
	{sessionkit.MetricTokenInvalid, "sessionkit_token_invalid_total", "Cookie values that failed authenticated decryption."},
	{sessionkit.MetricSessionResolved, "sessionkit_session_resolved_total", "Sessions resolved to a live directory user."},
	{sessionkit.MetricResolveUserFailure, "sessionkit_resolve_user_failure_total", "Session resolutions where the user lookup failed."},
	{sessionkit.MetricOrganizationSwitched, "sessionkit_organization_switched_total", "Successful active-organization switches."},
	{sessionkit.MetricOrganizationSwitchDenied, "sessionkit_organization_switch_denied_total", "Organization switches denied for lack of membership."},
	{sessionkit.MetricSignInSuccess, "sessionkit_signin_success_total", "Successful sign-ins across all methods."},
	{sessionkit.MetricSignInFailure, "sessionkit_signin_failure_total", "Failed sign-in attempts."},
	{sessionkit.MetricSignOut, "sessionkit_signout_total", "Sign-out calls."},
}

// histBucketSuffix mirrors the bucket bounds of the validate-latency
// histogram, in milliseconds, last bucket unbounded.
var histBucketSuffix = [8]string{"5", "10", "25", "50", "100", "250", "500", "inf"}

const latencyMetricName = "sessionkit_validate_latency_ms"

type observedCounter struct {
	id         sessionkit.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter owns the instrument registration. Close unregisters the
// collection callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latBuckets   [8]metric.Int64ObservableGauge
	latCount     metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers sessionkit's metrics on meter, reading them from
// engine on every collection cycle.
func NewExporter(meter metric.Meter, engine *sessionkit.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+len(histBucketSuffix)+2)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	for i, suffix := range histBucketSuffix {
		name := latencyMetricName + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		exporter.latBuckets[i] = ins
		observables = append(observables, ins)
	}

	latCount, err := meter.Int64ObservableGauge(latencyMetricName+"_count", metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge: %w", err)
	}
	exporter.latCount = latCount
	observables = append(observables, latCount)

	auditDropped, err := meter.Int64ObservableCounter(
		"sessionkit_audit_dropped_total",
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}

		cumulative := cumulativeBuckets(snapshot.Histograms[sessionkit.MetricValidateLatency])
		for i := range cumulative {
			observer.ObserveInt64(exporter.latBuckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(exporter.latCount, int64(cumulative[len(cumulative)-1]))

		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// cumulativeBuckets converts per-bucket counts to the running totals OTel
// histogram bucket gauges report. Tolerates short or missing input.
func cumulativeBuckets(buckets []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(buckets) {
			running += buckets[i]
		}
		out[i] = running
	}
	return out
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
