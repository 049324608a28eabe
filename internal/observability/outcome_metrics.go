package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeCollector exposes metrics about what the simulator computed, as
// opposed to how the transport behaved.
type OutcomeCollector struct {
	gatherer prometheus.Gatherer

	ThreatClassifications *prometheus.CounterVec
	TrajectoryVerdicts    *prometheus.CounterVec
	TNTEquivalent         prometheus.Histogram
	ReportCacheRatio      prometheus.Gauge
}

// NewOutcomeCollector registers outcome metrics against the provided registerer.
func NewOutcomeCollector(reg prometheus.Registerer) (*OutcomeCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	threats := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impact_threat_classifications_total",
		Help: "Computed impact reports, labeled by threat band.",
	}, []string{"threat"})
	threats, err := register(reg, threats)
	if err != nil {
		return nil, err
	}

	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impact_trajectory_verdicts_total",
		Help: "Computed trajectories, labeled by impact or miss verdict.",
	}, []string{"verdict"})
	verdicts, err = register(reg, verdicts)
	if err != nil {
		return nil, err
	}

	tnt := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "impact_tnt_equivalent_tons",
		Help: "TNT equivalent of computed impacts in metric tons.",
		// 1 t .. 1e13 t, one bucket per decade.
		Buckets: prometheus.ExponentialBuckets(1, 10, 14),
	})
	tnt, err = register(reg, tnt)
	if err != nil {
		return nil, err
	}

	cacheRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "impact_report_cache_hit_ratio",
		Help: "Hit ratio for the memoized report cache.",
	})
	cacheRatio, err = register(reg, cacheRatio)
	if err != nil {
		return nil, err
	}

	return &OutcomeCollector{
		gatherer:              gatherer,
		ThreatClassifications: threats,
		TrajectoryVerdicts:    verdicts,
		TNTEquivalent:         tnt,
		ReportCacheRatio:      cacheRatio,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *OutcomeCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveReport records the threat band and energy of one impact report.
func (c *OutcomeCollector) ObserveReport(threat string, tntTons float64) {
	if c == nil {
		return
	}
	if c.ThreatClassifications != nil {
		c.ThreatClassifications.WithLabelValues(threat).Inc()
	}
	if c.TNTEquivalent != nil {
		c.TNTEquivalent.Observe(tntTons)
	}
}

// ObserveTrajectory records an impact or miss verdict.
func (c *OutcomeCollector) ObserveTrajectory(willImpact bool) {
	if c == nil || c.TrajectoryVerdicts == nil {
		return
	}
	verdict := "miss"
	if willImpact {
		verdict = "impact"
	}
	c.TrajectoryVerdicts.WithLabelValues(verdict).Inc()
}

// SetReportCacheHitRatio sets the report cache hit ratio, clamped to [0, 1].
func (c *OutcomeCollector) SetReportCacheHitRatio(ratio float64) {
	if c == nil || c.ReportCacheRatio == nil {
		return
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.ReportCacheRatio.Set(ratio)
}
