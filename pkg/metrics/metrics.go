package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas HTTP y de agenda de la clínica
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "Total de peticiones HTTP procesadas",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "Duración de las peticiones HTTP en segundos",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AppointmentsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_appointments_booked_total",
			Help: "Total de citas reservadas",
		},
	)

	BookingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_booking_conflicts_total",
			Help: "Total de reservas rechazadas por slot ocupado",
		},
	)

	CheckIns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_checkins_total",
			Help: "Total de llegadas registradas con número de turno",
		},
	)

	Cancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_cancellations_total",
			Help: "Total de citas canceladas",
		},
	)
)
