package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutInitiations,
		checkoutOutcomes,
		confirmAttempts,
		revenueKES,
	)
}

var (
	checkoutInitiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_initiations_total",
			Help: "STK-push initiation requests by result (accepted/rejected/unavailable).",
		},
		[]string{"result"},
	)

	checkoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_outcomes_total",
			Help: "Terminal checkout resolutions by state (succeeded/failed/timed_out).",
		},
		[]string{"state"},
	)

	confirmAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_confirm_attempts_total",
			Help: "Poll/verify attempts against the gateway by normalized status.",
		},
		[]string{"strategy", "status"},
	)

	revenueKES = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_revenue_kes_total",
			Help: "Total KES value of confirmed purchases.",
		},
	)
)

func IncInitiation(result string) {
	checkoutInitiations.WithLabelValues(norm(result)).Inc()
}

func IncOutcome(state string) {
	checkoutOutcomes.WithLabelValues(norm(state)).Inc()
}

func IncConfirmAttempt(strategy, status string) {
	confirmAttempts.WithLabelValues(norm(strategy), norm(status)).Inc()
}

func AddRevenueKES(amount int64) {
	revenueKES.Add(float64(amount))
}
