package repository

import (
	"context"
	"database/sql"

	"github.com/ndelacroix/culture-pass/internal/model"
)

// OffererRepo provides access to the offerers and venues tables.  An
// offerer is the legal structure managed by a pro user; venues are the
// physical or virtual places where its offers live.
type OffererRepo struct{ DB *sql.DB }

func NewOffererRepo(db *sql.DB) *OffererRepo { return &OffererRepo{DB: db} }

// CreateOfferer inserts a new offerer for the given pro user.  The
// offerer starts unvalidated: its stocks stay unbookable until the
// validation workflow sets validated_at.  Duplicate SIRENs surface as
// ErrConflict.
func (r *OffererRepo) CreateOfferer(ctx context.Context, o *model.Offerer) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO offerers (owner_user_id, name, siren) VALUES (?,?,?)",
		o.OwnerUserID, o.Name, o.Siren)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

const offererColumns = "id, owner_user_id, name, siren, is_active, validated_at, created_at, updated_at"

func scanOfferer(row interface{ Scan(...any) error }) (model.Offerer, error) {
	var (
		o           model.Offerer
		validatedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OwnerUserID, &o.Name, &o.Siren, &o.IsActive,
		&validatedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Offerer{}, err
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		o.ValidatedAt = &t
	}
	return o, nil
}

// GetOffererForOwner returns an offerer after checking that the caller
// owns it.  sql.ErrNoRows means the offerer does not exist,
// ErrForbidden that it belongs to someone else.
func (r *OffererRepo) GetOffererForOwner(ctx context.Context, offererID, ownerID uint64) (model.Offerer, error) {
	o, err := scanOfferer(r.DB.QueryRowContext(ctx,
		"SELECT "+offererColumns+" FROM offerers WHERE id=?", offererID))
	if err != nil {
		return model.Offerer{}, err
	}
	if o.OwnerUserID != ownerID {
		return model.Offerer{}, ErrForbidden
	}
	return o, nil
}

// ListOfferersByOwner returns all offerers managed by a pro user,
// oldest first.
func (r *OffererRepo) ListOfferersByOwner(ctx context.Context, ownerID uint64) ([]model.Offerer, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+offererColumns+" FROM offerers WHERE owner_user_id=? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Offerer, 0)
	for rows.Next() {
		o, err := scanOfferer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ValidateOfferer stamps validated_at, making the offerer's stocks
// eligible for booking.  It is idempotent.
func (r *OffererRepo) ValidateOfferer(ctx context.Context, offererID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE offerers SET validated_at = COALESCE(validated_at, UTC_TIMESTAMP()) WHERE id=?",
		offererID)
	return err
}

// CreateVenue inserts a venue under an offerer after verifying that the
// caller owns the offerer.
func (r *OffererRepo) CreateVenue(ctx context.Context, ownerID uint64, v *model.Venue) error {
	if _, err := r.GetOffererForOwner(ctx, v.OffererID, ownerID); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO venues (offerer_id, name, address, postal_code, city, is_virtual) VALUES (?,?,?,?,?,?)",
		v.OffererID, v.Name, v.Address, v.PostalCode, v.City, v.IsVirtual)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

const venueColumns = "id, offerer_id, name, address, postal_code, city, is_virtual, is_active, created_at, updated_at"

// GetVenueForOwner loads a venue and enforces ownership through the
// offerer hierarchy.  Returns sql.ErrNoRows when missing, ErrForbidden
// when owned by another pro.
func (r *OffererRepo) GetVenueForOwner(ctx context.Context, venueID, ownerID uint64) (model.Venue, error) {
	var (
		v           model.Venue
		actualOwner uint64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT v.id, v.offerer_id, v.name, v.address, v.postal_code, v.city,
		        v.is_virtual, v.is_active, v.created_at, v.updated_at, o.owner_user_id
		   FROM venues v
		   JOIN offerers o ON o.id = v.offerer_id
		  WHERE v.id = ?`, venueID).
		Scan(&v.ID, &v.OffererID, &v.Name, &v.Address, &v.PostalCode, &v.City,
			&v.IsVirtual, &v.IsActive, &v.CreatedAt, &v.UpdatedAt, &actualOwner)
	if err != nil {
		return model.Venue{}, err
	}
	if actualOwner != ownerID {
		return model.Venue{}, ErrForbidden
	}
	return v, nil
}

// ListVenuesByOfferer returns the venues of an offerer owned by the
// caller, oldest first.
func (r *OffererRepo) ListVenuesByOfferer(ctx context.Context, offererID, ownerID uint64) ([]model.Venue, error) {
	if _, err := r.GetOffererForOwner(ctx, offererID, ownerID); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+venueColumns+" FROM venues WHERE offerer_id=? ORDER BY id", offererID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Venue, 0)
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.OffererID, &v.Name, &v.Address, &v.PostalCode,
			&v.City, &v.IsVirtual, &v.IsActive, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
