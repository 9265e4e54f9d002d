package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsBuilder struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	InstanceID string
}

func NewMetricsBuilder(namespace, subsystem, name, help, instanceID string) *MetricsBuilder {
	return &MetricsBuilder{
		Namespace:  namespace,
		Subsystem:  subsystem,
		Name:       name,
		Help:       help,
		InstanceID: instanceID,
	}
}

// Build registers its collectors on reg and returns the middleware.
// Requests are labelled by route pattern, not raw path, so account ids do
// not blow up cardinality.
func (m *MetricsBuilder) Build(reg prometheus.Registerer) gin.HandlerFunc {
	labels := []string{"method", "pattern", "status"}
	summary := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: m.Namespace,
		Subsystem: m.Subsystem,
		Name:      m.Name + "_resp_time",
		Help:      m.Help,
		ConstLabels: prometheus.Labels{
			"instance_id": m.InstanceID,
		},
		Objectives: map[float64]float64{
			0.5:  0.01,
			0.9:  0.01,
			0.99: 0.005,
		},
	}, labels)
	reg.MustRegister(summary)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.Namespace,
		Subsystem: m.Subsystem,
		Name:      m.Name + "_active_req",
		Help:      m.Help,
		ConstLabels: prometheus.Labels{
			"instance_id": m.InstanceID,
		},
	})
	reg.MustRegister(gauge)

	return func(c *gin.Context) {
		start := time.Now()
		gauge.Inc()
		defer func() {
			gauge.Dec()
			pattern := c.FullPath()
			if pattern == "" {
				pattern = "unknown"
			}
			summary.WithLabelValues(c.Request.Method, pattern, strconv.Itoa(c.Writer.Status())).
				Observe(float64(time.Since(start).Milliseconds()))
		}()
		c.Next()
	}
}
