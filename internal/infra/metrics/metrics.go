package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound updates by kind (message/callback/ignored).",
		},
		[]string{"kind"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Handled commands by name and outcome (ok/error/denied).",
		},
		[]string{"command", "outcome"},
	)

	promotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_promotions_total",
			Help: "Promotion attempts by result (added/verify_failed/failed).",
		},
		[]string{"result"},
	)

	demotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_demotions_total",
			Help: "Demotion attempts by result (ok/failed).",
		},
		[]string{"result"},
	)

	auditPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_audit_entries_pruned_total",
			Help: "Audit entries removed by /clearlogs or the retention sweep.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			updatesTotal, commandsTotal,
			promotionsTotal, demotionsTotal,
			auditPrunedTotal,
		)
	})
}

func IncUpdate(kind string)              { updatesTotal.WithLabelValues(kind).Inc() }
func IncCommand(command, outcome string) { commandsTotal.WithLabelValues(command, outcome).Inc() }
func IncPromotion(result string)         { promotionsTotal.WithLabelValues(result).Inc() }
func IncDemotion(result string)          { demotionsTotal.WithLabelValues(result).Inc() }
func AddAuditPruned(n int64)             { auditPrunedTotal.Add(float64(n)) }
