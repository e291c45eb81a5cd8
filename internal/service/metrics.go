package service

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nesavent_orders_created_total",
		Help: "Total number of orders created",
	})

	paymentConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nesavent_payment_confirmations_total",
			Help: "Payment confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nesavent_tickets_issued_total",
		Help: "Total number of tickets minted",
	})

	withdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nesavent_withdrawals_total",
			Help: "Withdrawal ledger transitions",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ordersCreatedTotal)
	prometheus.MustRegister(paymentConfirmationsTotal)
	prometheus.MustRegister(ticketsIssuedTotal)
	prometheus.MustRegister(withdrawalsTotal)
}
