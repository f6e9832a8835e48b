package authority

import "github.com/prometheus/client_golang/prometheus"

var (
	activeRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "typerace_active_rooms",
		Help: "rooms currently registered",
	})
	keystrokesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "typerace_keystrokes_total",
		Help: "keystroke frames processed",
	})
	racesStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "typerace_races_started_total",
		Help: "races started",
	})
)

// InitMetrics registers the authority collectors with the default registry.
// Call once from main; tests skip it so repeated registration never panics.
func InitMetrics() {
	prometheus.MustRegister(activeRooms, keystrokesTotal, racesStartedTotal)
}
