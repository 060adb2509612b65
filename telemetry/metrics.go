// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec // label: outcome
	ProfileChecks    *prometheus.CounterVec // label: result
	BannerFailures   prometheus.Counter

	// Histograms (seconds)
	ProfileCheckDuration prometheus.Observer
	SessionDuration      prometheus.Observer

	// Gauges
	ActiveSessions prometheus.Gauge
	GatewayUp      prometheus.Gauge // 1=connected,0=disconnected
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "verify_sessions_started_total", Help: "Number of verification sessions started"})
		SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{Name: "verify_sessions_finished_total", Help: "Number of verification sessions finished by outcome"}, []string{"outcome"})
		ProfileChecks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "habbo_profile_checks_total", Help: "Number of Habbo profile checks by result"}, []string{"result"})
		BannerFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "verify_banner_failures_total", Help: "Number of success banners that failed to render"})
		ProfileCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "habbo_profile_check_duration_seconds", Help: "Habbo profile lookup duration seconds", Buckets: prometheus.DefBuckets})
		SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "verify_session_duration_seconds", Help: "Time from session start to terminal outcome", Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}})
		ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{Name: "verify_sessions_active", Help: "Current number of live verification sessions"})
		GatewayUp = promauto.NewGauge(prometheus.GaugeOpts{Name: "discord_gateway_up", Help: "Discord gateway connected=1 disconnected=0"})
	})
}

// SetActiveSessions records the current live session count.
func SetActiveSessions(n int) {
	if ActiveSessions != nil {
		ActiveSessions.Set(float64(n))
	}
}

// UpdateGatewayGauge sets gauge to 1 if connected else 0.
func UpdateGatewayGauge(up bool) {
	if GatewayUp == nil {
		return
	}
	if up {
		GatewayUp.Set(1)
	} else {
		GatewayUp.Set(0)
	}
}

// RecordSessionStarted bumps the started counter.
func RecordSessionStarted() {
	if SessionsStarted != nil {
		SessionsStarted.Inc()
	}
}

// RecordSessionFinished counts a terminal outcome and the session lifetime.
func RecordSessionFinished(outcome string, lifetime time.Duration) {
	if SessionsFinished != nil {
		SessionsFinished.WithLabelValues(outcome).Inc()
	}
	if SessionDuration != nil {
		SessionDuration.Observe(lifetime.Seconds())
	}
}

// RecordProfileCheck counts one profile lookup result.
func RecordProfileCheck(result string) {
	if ProfileChecks != nil {
		ProfileChecks.WithLabelValues(result).Inc()
	}
}

// RecordBannerFailure counts a banner that could not be produced.
func RecordBannerFailure() {
	if BannerFailures != nil {
		BannerFailures.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
