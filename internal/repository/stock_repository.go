package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ndelacroix/culture-pass/internal/model"
)

// StockRepo provides access to the stocks table.
type StockRepo struct{ DB *sql.DB }

func NewStockRepo(db *sql.DB) *StockRepo { return &StockRepo{DB: db} }

// StockDetail carries a stock together with the offer, venue and
// offerer facts the booking guards need, loaded in one query.
//
// Fields:
//   - Stock: the stock row itself.
//   - Remaining: quantity minus active bookings; nil when unlimited.
//   - OfferID .. OfferIsSoftDeleted: the parent offer.
//   - VenueID .. VenueIsActive: the hosting venue.
//   - OffererID .. OffererValidated: the managing structure.
type StockDetail struct {
	Stock              model.Stock
	Remaining          *int32
	OfferID            uint64
	OfferName          string
	SubcategoryID      string
	IsDuo              bool
	OfferIsActive      bool
	OfferIsSoftDeleted bool
	VenueID            uint64
	VenueName          string
	VenueIsActive      bool
	OffererID          uint64
	OffererIsActive    bool
	OffererValidated   bool
}

// verifyStockOwner resolves a stock's owning pro user through the
// offer/venue/offerer chain.
func (r *StockRepo) verifyStockOwner(ctx context.Context, stockID, ownerID uint64) error {
	var actualOwner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT of.owner_user_id
		   FROM stocks s
		   JOIN offers o ON o.id = s.offer_id
		   JOIN venues v ON v.id = o.venue_id
		   JOIN offerers of ON of.id = v.offerer_id
		  WHERE s.id = ?`, stockID).Scan(&actualOwner)
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	return nil
}

// Create inserts a stock under an offer owned by the caller.
func (r *StockRepo) Create(ctx context.Context, ownerID uint64, s *model.Stock) error {
	var actualOwner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT of.owner_user_id
		   FROM offers o
		   JOIN venues v ON v.id = o.venue_id
		   JOIN offerers of ON of.id = v.offerer_id
		  WHERE o.id = ?`, s.OfferID).Scan(&actualOwner)
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO stocks (offer_id, price_cents, quantity, beginning_at, booking_limit_at) VALUES (?,?,?,?,?)",
		s.OfferID, s.PriceCents, s.Quantity, s.BeginningAt, s.BookingLimitAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update rewrites the mutable fields of a stock owned by the caller.
// A finite quantity below the already-booked total would strand
// existing bookings past capacity, so it is refused.
func (r *StockRepo) Update(ctx context.Context, ownerID, stockID uint64, priceCents int64, quantity *int32, beginningAt, bookingLimitAt *time.Time) error {
	if err := r.verifyStockOwner(ctx, stockID, ownerID); err != nil {
		return err
	}
	if quantity != nil {
		var booked int32
		err := r.DB.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(quantity),0) FROM bookings WHERE stock_id=? AND cancellation_date IS NULL",
			stockID).Scan(&booked)
		if err != nil {
			return err
		}
		if *quantity < booked {
			return ErrConflict
		}
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE stocks SET price_cents=?, quantity=?, beginning_at=?, booking_limit_at=? WHERE id=?",
		priceCents, quantity, beginningAt, bookingLimitAt, stockID)
	return err
}

// SoftDelete marks a stock deleted.  Stocks with active bookings cannot
// be removed.
func (r *StockRepo) SoftDelete(ctx context.Context, ownerID, stockID uint64) error {
	if err := r.verifyStockOwner(ctx, stockID, ownerID); err != nil {
		return err
	}
	var active int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE stock_id=? AND cancellation_date IS NULL AND date_used IS NULL",
		stockID).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE stocks SET is_soft_deleted=1 WHERE id=?", stockID)
	return err
}

// ListByOffer returns all live stocks of an offer, event date order.
func (r *StockRepo) ListByOffer(ctx context.Context, offerID uint64) ([]model.Stock, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, offer_id, price_cents, quantity, beginning_at, booking_limit_at, is_soft_deleted, created_at, updated_at
		   FROM stocks WHERE offer_id=? AND is_soft_deleted=0 ORDER BY beginning_at, id`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Stock, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanStock(row interface{ Scan(...any) error }) (model.Stock, error) {
	var (
		s         model.Stock
		qty       sql.NullInt32
		beginning sql.NullTime
		limit     sql.NullTime
	)
	err := row.Scan(&s.ID, &s.OfferID, &s.PriceCents, &qty, &beginning, &limit,
		&s.IsSoftDeleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Stock{}, err
	}
	if qty.Valid {
		v := qty.Int32
		s.Quantity = &v
	}
	if beginning.Valid {
		t := beginning.Time
		s.BeginningAt = &t
	}
	if limit.Valid {
		t := limit.Time
		s.BookingLimitAt = &t
	}
	return s, nil
}

// GetDetail loads a stock with its full ancestry and the remaining
// quantity derived from active bookings.  Returns sql.ErrNoRows when
// the stock does not exist.
func (r *StockRepo) GetDetail(ctx context.Context, stockID uint64) (StockDetail, error) {
	const q = `SELECT s.id, s.offer_id, s.price_cents, s.quantity, s.beginning_at, s.booking_limit_at,
	                  s.is_soft_deleted, s.created_at, s.updated_at,
	                  o.id, o.name, o.subcategory_id, o.is_duo, o.is_active, o.is_soft_deleted,
	                  v.id, v.name, v.is_active,
	                  of.id, of.is_active, of.validated_at IS NOT NULL,
	                  COALESCE((SELECT SUM(b.quantity) FROM bookings b
	                             WHERE b.stock_id = s.id AND b.cancellation_date IS NULL), 0)
	             FROM stocks s
	             JOIN offers o ON o.id = s.offer_id
	             JOIN venues v ON v.id = o.venue_id
	             JOIN offerers of ON of.id = v.offerer_id
	            WHERE s.id = ?`
	var (
		d      StockDetail
		qty    sql.NullInt32
		begin  sql.NullTime
		limit  sql.NullTime
		booked int32
	)
	err := r.DB.QueryRowContext(ctx, q, stockID).Scan(
		&d.Stock.ID, &d.Stock.OfferID, &d.Stock.PriceCents, &qty, &begin, &limit,
		&d.Stock.IsSoftDeleted, &d.Stock.CreatedAt, &d.Stock.UpdatedAt,
		&d.OfferID, &d.OfferName, &d.SubcategoryID, &d.IsDuo, &d.OfferIsActive, &d.OfferIsSoftDeleted,
		&d.VenueID, &d.VenueName, &d.VenueIsActive,
		&d.OffererID, &d.OffererIsActive, &d.OffererValidated,
		&booked)
	if err != nil {
		return StockDetail{}, err
	}
	if qty.Valid {
		v := qty.Int32
		d.Stock.Quantity = &v
		remaining := v - booked
		if remaining < 0 {
			remaining = 0
		}
		d.Remaining = &remaining
	}
	if begin.Valid {
		t := begin.Time
		d.Stock.BeginningAt = &t
	}
	if limit.Valid {
		t := limit.Time
		d.Stock.BookingLimitAt = &t
	}
	return d, nil
}
