package model

import "time"

// Offerer is the legal structure (company, association, public body)
// that owns venues.  New offerers go through a validation workflow:
// until ValidatedAt is set their stocks are not bookable.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerUserID – pro user managing this offerer.
//  Name        – display name of the structure.
//  Siren       – 9-digit registration number, unique.
//  IsActive    – whether the offerer is active.
//  ValidatedAt – when the offerer passed validation (null while pending).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Offerer struct {
	ID          uint64     // offerers.id
	OwnerUserID uint64     // offerers.owner_user_id
	Name        string     // offerers.name
	Siren       string     // offerers.siren
	IsActive    bool       // offerers.is_active
	ValidatedAt *time.Time // offerers.validated_at (nullable)
	CreatedAt   time.Time  // offerers.created_at
	UpdatedAt   time.Time  // offerers.updated_at
}

// Venue is a place (or virtual space) where an offerer sells offers.
// Virtual venues carry digital offers only and have no street address.
//
// Fields:
//  ID         – primary key identifier.
//  OffererID  – owning offerer.
//  Name       – venue display name.
//  Address    – street address (empty for virtual venues).
//  PostalCode – postal code (empty for virtual venues).
//  City       – city (empty for virtual venues).
//  IsVirtual  – true for the offerer's digital venue.
//  IsActive   – whether the venue is open for booking.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Venue struct {
	ID         uint64    // venues.id
	OffererID  uint64    // venues.offerer_id
	Name       string    // venues.name
	Address    string    // venues.address
	PostalCode string    // venues.postal_code
	City       string    // venues.city
	IsVirtual  bool      // venues.is_virtual
	IsActive   bool      // venues.is_active
	CreatedAt  time.Time // venues.created_at
	UpdatedAt  time.Time // venues.updated_at
}
