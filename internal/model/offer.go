package model

import "time"

// Offer is a sellable cultural item or event listing attached to a
// venue.  Behaviour (event or not, expiry, deposit bucket) is driven by
// the subcategory catalog, not stored per row.
//
// Fields:
//  ID            – primary key identifier.
//  VenueID       – venue carrying the offer.
//  SubcategoryID – key into the static subcategory catalog.
//  Name          – offer title.
//  Description   – free-text description.
//  IsDuo         – whether the offer may be booked for two at once.
//  IsActive      – pro-controlled publication flag.
//  IsSoftDeleted – soft-delete flag; deleted offers are never bookable.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Offer struct {
	ID            uint64    // offers.id
	VenueID       uint64    // offers.venue_id
	SubcategoryID string    // offers.subcategory_id
	Name          string    // offers.name
	Description   string    // offers.description
	IsDuo         bool      // offers.is_duo
	IsActive      bool      // offers.is_active
	IsSoftDeleted bool      // offers.is_soft_deleted
	CreatedAt     time.Time // offers.created_at
	UpdatedAt     time.Time // offers.updated_at
}

// MaxQuantity returns the highest quantity a single booking of this
// offer may carry: 2 for duo offers, otherwise 1.
func (o Offer) MaxQuantity() int32 {
	if o.IsDuo {
		return 2
	}
	return 1
}

// Stock is a bookable inventory unit of an offer: a price, an optional
// finite quantity and optional event/booking-limit datetimes.  A NULL
// quantity means unlimited availability.
//
// Fields:
//  ID             – primary key identifier.
//  OfferID        – owning offer.
//  PriceCents     – unit price in euro cents.
//  Quantity       – total bookable quantity; nil = unlimited.
//  BeginningAt    – event start datetime; nil for non-event offers.
//  BookingLimitAt – last datetime at which the stock may be booked; nil
//                   means no limit.
//  IsSoftDeleted  – soft-delete flag.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Stock struct {
	ID             uint64     // stocks.id
	OfferID        uint64     // stocks.offer_id
	PriceCents     int64      // stocks.price_cents
	Quantity       *int32     // stocks.quantity (nullable = unlimited)
	BeginningAt    *time.Time // stocks.beginning_at (nullable)
	BookingLimitAt *time.Time // stocks.booking_limit_at (nullable)
	IsSoftDeleted  bool       // stocks.is_soft_deleted
	CreatedAt      time.Time  // stocks.created_at
	UpdatedAt      time.Time  // stocks.updated_at
}
