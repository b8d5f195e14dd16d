package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ndelacroix/culture-pass/internal/model"
)

// OfferRepo provides access to the offers table plus the public browse
// queries joining venues and stocks.
type OfferRepo struct{ DB *sql.DB }

func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{DB: db} }

// Create inserts a new offer after verifying that the caller owns the
// target venue (through the offerer hierarchy).
func (r *OfferRepo) Create(ctx context.Context, ownerID uint64, o *model.Offer) error {
	var actualOwner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT of.owner_user_id FROM venues v JOIN offerers of ON of.id = v.offerer_id WHERE v.id = ?`,
		o.VenueID).Scan(&actualOwner)
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO offers (venue_id, subcategory_id, name, description, is_duo) VALUES (?,?,?,?,?)",
		o.VenueID, o.SubcategoryID, o.Name, o.Description, o.IsDuo)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

const offerColumns = "id, venue_id, subcategory_id, name, description, is_duo, is_active, is_soft_deleted, created_at, updated_at"

func scanOffer(row interface{ Scan(...any) error }) (model.Offer, error) {
	var (
		o    model.Offer
		desc sql.NullString
	)
	err := row.Scan(&o.ID, &o.VenueID, &o.SubcategoryID, &o.Name, &desc,
		&o.IsDuo, &o.IsActive, &o.IsSoftDeleted, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Offer{}, err
	}
	o.Description = desc.String
	return o, nil
}

// GetByID fetches an offer regardless of ownership or state.
func (r *OfferRepo) GetByID(ctx context.Context, offerID uint64) (model.Offer, error) {
	return scanOffer(r.DB.QueryRowContext(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE id=?", offerID))
}

// GetForOwner loads an offer and enforces ownership.  Returns
// sql.ErrNoRows when the offer does not exist and ErrForbidden when it
// belongs to another pro.
func (r *OfferRepo) GetForOwner(ctx context.Context, offerID, ownerID uint64) (model.Offer, error) {
	var actualOwner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT of.owner_user_id
		   FROM offers o
		   JOIN venues v ON v.id = o.venue_id
		   JOIN offerers of ON of.id = v.offerer_id
		  WHERE o.id = ?`, offerID).Scan(&actualOwner)
	if err != nil {
		return model.Offer{}, err
	}
	if actualOwner != ownerID {
		return model.Offer{}, ErrForbidden
	}
	return r.GetByID(ctx, offerID)
}

// SetActive toggles the publication flag of an offer owned by the caller.
func (r *OfferRepo) SetActive(ctx context.Context, offerID, ownerID uint64, active bool) error {
	if _, err := r.GetForOwner(ctx, offerID, ownerID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE offers SET is_active=? WHERE id=?", active, offerID)
	return err
}

// SoftDelete marks an offer deleted.  Offers that still carry active
// bookings cannot be deleted; the attempt returns ErrConflict.
func (r *OfferRepo) SoftDelete(ctx context.Context, offerID, ownerID uint64) error {
	if _, err := r.GetForOwner(ctx, offerID, ownerID); err != nil {
		return err
	}
	var active int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*)
		   FROM bookings b
		   JOIN stocks s ON s.id = b.stock_id
		  WHERE s.offer_id = ? AND b.cancellation_date IS NULL AND b.date_used IS NULL`,
		offerID).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE offers SET is_soft_deleted=1 WHERE id=?", offerID)
	return err
}

// ListByVenueForOwner returns all offers of a venue owned by the caller.
func (r *OfferRepo) ListByVenueForOwner(ctx context.Context, venueID, ownerID uint64) ([]model.Offer, error) {
	var actualOwner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT of.owner_user_id FROM venues v JOIN offerers of ON of.id = v.offerer_id WHERE v.id = ?`,
		venueID).Scan(&actualOwner)
	if err != nil {
		return nil, err
	}
	if actualOwner != ownerID {
		return nil, ErrForbidden
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE venue_id=? AND is_soft_deleted=0 ORDER BY id", venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PublicOffer is the sanitized browse view of an offer: no soft-delete
// or publication internals, venue and city for display.
type PublicOffer struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	SubcategoryID string `json:"subcategory_id"`
	IsDuo         bool   `json:"is_duo"`
	VenueID       uint64 `json:"venue_id"`
	VenueName     string `json:"venue_name"`
	City          string `json:"city,omitempty"`
}

// PublicStock is the browse view of a stock: price, remaining quantity
// (null = unlimited) and the event/limit datetimes as RFC3339 strings.
type PublicStock struct {
	ID             uint64  `json:"id"`
	PriceCents     int64   `json:"price_cents"`
	Remaining      *int32  `json:"remaining,omitempty"`
	Unlimited      bool    `json:"unlimited"`
	BeginningAt    *string `json:"beginning_at,omitempty"`
	BookingLimitAt *string `json:"booking_limit_at,omitempty"`
	IsBookable     bool    `json:"is_bookable"`
}

// SearchPublic returns active, non-deleted offers on active venues of
// validated offerers, optionally filtered by a name substring, newest
// first.  limit/offset drive pagination.
func (r *OfferRepo) SearchPublic(ctx context.Context, query string, limit, offset int) ([]PublicOffer, error) {
	const q = `SELECT o.id, o.name, o.description, o.subcategory_id, o.is_duo,
	                  v.id, v.name, v.city
	             FROM offers o
	             JOIN venues v ON v.id = o.venue_id
	             JOIN offerers of ON of.id = v.offerer_id
	            WHERE o.is_active = 1 AND o.is_soft_deleted = 0
	              AND v.is_active = 1 AND of.is_active = 1
	              AND of.validated_at IS NOT NULL
	              AND (? = '' OR o.name LIKE CONCAT('%', ?, '%'))
	            ORDER BY o.id DESC
	            LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, query, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PublicOffer, 0)
	for rows.Next() {
		var (
			p    PublicOffer
			desc sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &p.SubcategoryID, &p.IsDuo,
			&p.VenueID, &p.VenueName, &p.City); err != nil {
			return nil, err
		}
		p.Description = desc.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// PublicStocks returns the browse view of an offer's stocks with
// remaining quantities.  Bookability of each row is left for the caller
// to derive from the full StockDetail; here only the cheap per-row
// facts are computed (limit date, event date, remaining).
func (r *OfferRepo) PublicStocks(ctx context.Context, offerID uint64, now time.Time) ([]PublicStock, error) {
	const q = `SELECT s.id, s.price_cents, s.quantity, s.beginning_at, s.booking_limit_at,
	                  COALESCE(SUM(CASE WHEN b.cancellation_date IS NULL THEN b.quantity END), 0)
	             FROM stocks s
	             LEFT JOIN bookings b ON b.stock_id = s.id
	            WHERE s.offer_id = ? AND s.is_soft_deleted = 0
	            GROUP BY s.id, s.price_cents, s.quantity, s.beginning_at, s.booking_limit_at
	            ORDER BY s.beginning_at, s.id`
	rows, err := r.DB.QueryContext(ctx, q, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PublicStock, 0)
	for rows.Next() {
		var (
			p         PublicStock
			qty       sql.NullInt32
			beginning sql.NullTime
			limit     sql.NullTime
			booked    int32
		)
		if err := rows.Scan(&p.ID, &p.PriceCents, &qty, &beginning, &limit, &booked); err != nil {
			return nil, err
		}
		bookable := true
		if qty.Valid {
			remaining := qty.Int32 - booked
			if remaining < 0 {
				remaining = 0
			}
			p.Remaining = &remaining
			bookable = remaining > 0
		} else {
			p.Unlimited = true
		}
		if beginning.Valid {
			iso := beginning.Time.UTC().Format(time.RFC3339)
			p.BeginningAt = &iso
			if !beginning.Time.After(now) {
				bookable = false
			}
		}
		if limit.Valid {
			iso := limit.Time.UTC().Format(time.RFC3339)
			p.BookingLimitAt = &iso
			if !limit.Time.After(now) {
				bookable = false
			}
		}
		p.IsBookable = bookable
		out = append(out, p)
	}
	return out, rows.Err()
}
