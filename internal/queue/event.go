// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. Routing uses the default exchange, so the routing key is
// the queue name itself.
const (
	QueueBookingCreated   = "booking.created"
	QueueBookingCancelled = "booking.cancelled"
	QueueOfferReindex     = "offer.reindex"
)

// BookingCreatedEvent is published when a booking is successfully
// recorded. It carries enough information for downstream consumers to
// notify the beneficiary and the pro without querying the primary
// database.
type BookingCreatedEvent struct {
	BookingID     uint64  `json:"booking_id"`
	Token         string  `json:"token"`
	UserID        uint64  `json:"user_id"`
	UserEmail     string  `json:"user_email"`
	OfferID       uint64  `json:"offer_id"`
	OfferName     string  `json:"offer_name"`
	SubcategoryID string  `json:"subcategory_id"`
	VenueName     string  `json:"venue_name"`
	Quantity      int32   `json:"quantity"`
	TotalCents    int64   `json:"total_cents"`
	BeginningAt   *string `json:"beginning_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// BookingCancelledEvent is published on every cancellation, whoever
// triggered it. Reason is OFFERER, BENEFICIARY, EXPIRED or FRAUD.
type BookingCancelledEvent struct {
	BookingID   uint64 `json:"booking_id"`
	Token       string `json:"token"`
	UserID      uint64 `json:"user_id"`
	UserEmail   string `json:"user_email"`
	OfferID     uint64 `json:"offer_id"`
	OfferName   string `json:"offer_name"`
	Reason      string `json:"reason"`
	CancelledAt string `json:"cancelled_at"`
}

// OfferReindexEvent asks the search indexer to refresh the cached
// counters of an offer after its booking volume changed.
type OfferReindexEvent struct {
	OfferID uint64 `json:"offer_id"`
}
