package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the bidding and settlement paths.
// A nil *Metrics is valid and records nothing, which keeps tests free of
// duplicate registrations on the default registry.
type Metrics struct {
	bidsAccepted      prometheus.Counter
	bidsRejected      *prometheus.CounterVec
	placeBidDuration  prometheus.Histogram
	auctionsSettled   *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	subscribers       prometheus.Gauge
	notificationsSent *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on the
// default registry. Call at most once per process.
func New() *Metrics {
	return &Metrics{
		bidsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Total number of accepted bids",
		}),
		bidsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Total number of rejected bids by reason",
		}, []string{"reason"}),
		placeBidDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_place_bid_duration_seconds",
			Help:    "Duration of PlaceBid operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		auctionsSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_settled_total",
			Help: "Total number of settled auctions by outcome",
		}, []string{"outcome"}),
		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_settlement_sweep_duration_seconds",
			Help:    "Duration of settlement sweep cycles",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		}),
		subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auction_broadcast_subscribers",
			Help: "Number of currently subscribed broadcast connections",
		}),
		notificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_notifications_sent_total",
			Help: "Total number of notifications dispatched by category",
		}, []string{"category"}),
	}
}

// BidAccepted records one accepted bid.
func (m *Metrics) BidAccepted() {
	if m == nil {
		return
	}
	m.bidsAccepted.Inc()
}

// BidRejected records one rejected bid with its rejection reason.
func (m *Metrics) BidRejected(reason string) {
	if m == nil {
		return
	}
	m.bidsRejected.WithLabelValues(reason).Inc()
}

// ObservePlaceBid records the duration of a PlaceBid call.
func (m *Metrics) ObservePlaceBid(start time.Time) {
	if m == nil {
		return
	}
	m.placeBidDuration.Observe(time.Since(start).Seconds())
}

// AuctionSettled records one settled auction with its outcome.
func (m *Metrics) AuctionSettled(outcome string) {
	if m == nil {
		return
	}
	m.auctionsSettled.WithLabelValues(outcome).Inc()
}

// ObserveSweep records the duration of one settlement sweep.
func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(time.Since(start).Seconds())
}

// SubscriberAdded / SubscriberRemoved track the broadcast subscriber gauge.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

// NotificationSent records one dispatched notification.
func (m *Metrics) NotificationSent(category string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(category).Inc()
}
