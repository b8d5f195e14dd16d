package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/utils"
)

// BookingRepo provides access to the bookings table.  Inserts go
// through the database-side guard trigger, so over-booking and
// overspending surface here as ErrTooManyBookings / ErrInsufficientFunds
// even under concurrent writers.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// tokenAttempts bounds the countermark collision retry loop.
const tokenAttempts = 100

const bookingColumns = "id, user_id, stock_id, token, quantity, amount_cents, date_created, date_used, cancellation_date, cancellation_reason, reimbursement_date"

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b          model.Booking
		used       sql.NullTime
		cancelled  sql.NullTime
		reason     sql.NullString
		reimbursed sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.StockID, &b.Token, &b.Quantity, &b.AmountCents,
		&b.DateCreated, &used, &cancelled, &reason, &reimbursed)
	if err != nil {
		return model.Booking{}, err
	}
	if used.Valid {
		t := used.Time
		b.DateUsed = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		b.CancellationDate = &t
	}
	if reason.Valid {
		s := reason.String
		b.CancellationReason = &s
	}
	if reimbursed.Valid {
		t := reimbursed.Time
		b.ReimbursementDate = &t
	}
	return b, nil
}

// Create inserts a booking, drawing a fresh countermark token on each
// token collision.  The guard trigger may reject the insert; its signal
// is translated into the matching sentinel error.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	for i := 0; i < tokenAttempts; i++ {
		token, err := utils.NewBookingToken()
		if err != nil {
			return err
		}
		res, err := r.DB.ExecContext(ctx,
			"INSERT INTO bookings (user_id, stock_id, token, quantity, amount_cents) VALUES (?,?,?,?,?)",
			b.UserID, b.StockID, token, b.Quantity, b.AmountCents)
		if err != nil {
			if isDuplicate(err) {
				continue
			}
			return translateMySQL(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		b.Token = token
		return r.DB.QueryRowContext(ctx,
			"SELECT date_created FROM bookings WHERE id=?", b.ID).Scan(&b.DateCreated)
	}
	return ErrTokenSpaceExhausted
}

// GetByID fetches a bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=?", bookingID))
}

// BookingDetail is a booking joined with the stock, offer, venue and
// beneficiary facts the lifecycle operations and pro views need.
type BookingDetail struct {
	Booking       model.Booking
	BeginningAt   *time.Time
	OfferID       uint64
	OfferName     string
	SubcategoryID string
	VenueID       uint64
	VenueName     string
	OffererID     uint64
	OwnerUserID   uint64
	UserEmail     string
}

const bookingDetailQuery = `SELECT b.id, b.user_id, b.stock_id, b.token, b.quantity, b.amount_cents,
	       b.date_created, b.date_used, b.cancellation_date, b.cancellation_reason, b.reimbursement_date,
	       s.beginning_at,
	       o.id, o.name, o.subcategory_id,
	       v.id, v.name,
	       of.id, of.owner_user_id,
	       u.email
	  FROM bookings b
	  JOIN stocks s ON s.id = b.stock_id
	  JOIN offers o ON o.id = s.offer_id
	  JOIN venues v ON v.id = o.venue_id
	  JOIN offerers of ON of.id = v.offerer_id
	  JOIN users u ON u.id = b.user_id`

func scanBookingDetail(row interface{ Scan(...any) error }) (BookingDetail, error) {
	var (
		d          BookingDetail
		used       sql.NullTime
		cancelled  sql.NullTime
		reason     sql.NullString
		reimbursed sql.NullTime
		beginning  sql.NullTime
	)
	err := row.Scan(&d.Booking.ID, &d.Booking.UserID, &d.Booking.StockID, &d.Booking.Token,
		&d.Booking.Quantity, &d.Booking.AmountCents, &d.Booking.DateCreated,
		&used, &cancelled, &reason, &reimbursed,
		&beginning,
		&d.OfferID, &d.OfferName, &d.SubcategoryID,
		&d.VenueID, &d.VenueName,
		&d.OffererID, &d.OwnerUserID,
		&d.UserEmail)
	if err != nil {
		return BookingDetail{}, err
	}
	if used.Valid {
		t := used.Time
		d.Booking.DateUsed = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		d.Booking.CancellationDate = &t
	}
	if reason.Valid {
		s := reason.String
		d.Booking.CancellationReason = &s
	}
	if reimbursed.Valid {
		t := reimbursed.Time
		d.Booking.ReimbursementDate = &t
	}
	if beginning.Valid {
		t := beginning.Time
		d.BeginningAt = &t
	}
	return d, nil
}

// GetDetail loads a booking with its full ancestry.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID uint64) (BookingDetail, error) {
	return scanBookingDetail(r.DB.QueryRowContext(ctx, bookingDetailQuery+" WHERE b.id = ?", bookingID))
}

// GetDetailByToken resolves a countermark typed in by a pro.
func (r *BookingRepo) GetDetailByToken(ctx context.Context, token string) (BookingDetail, error) {
	return scanBookingDetail(r.DB.QueryRowContext(ctx,
		bookingDetailQuery+" WHERE b.token = ?", strings.ToUpper(strings.TrimSpace(token))))
}

// HasActiveBookingForOffer reports whether the user already holds a
// non-cancelled booking on any stock of the offer.
func (r *BookingRepo) HasActiveBookingForOffer(ctx context.Context, userID, offerID uint64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings b
		                 JOIN stocks s ON s.id = b.stock_id
		                WHERE b.user_id = ? AND s.offer_id = ? AND b.cancellation_date IS NULL)`,
		userID, offerID).Scan(&exists)
	return exists, err
}

// MarkCancelled stamps the cancellation fact.  Only rows not yet
// cancelled are touched; a zero rowcount means a concurrent cancel won.
func (r *BookingRepo) MarkCancelled(ctx context.Context, bookingID uint64, reason string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET cancellation_date=?, cancellation_reason=? WHERE id=? AND cancellation_date IS NULL",
		at, reason, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// MarkUsed stamps date_used on a not-yet-used, not-cancelled booking.
func (r *BookingRepo) MarkUsed(ctx context.Context, bookingID uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET date_used=? WHERE id=? AND date_used IS NULL AND cancellation_date IS NULL",
		at, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// MarkUnused clears date_used unless reimbursement already started.
func (r *BookingRepo) MarkUnused(ctx context.Context, bookingID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET date_used=NULL WHERE id=? AND date_used IS NOT NULL AND reimbursement_date IS NULL",
		bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByUser returns a beneficiary's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingDetailQuery+" WHERE b.user_id = ? ORDER BY b.date_created DESC, b.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

// ListForOwner pages through all bookings taken against the pro user's
// offers, newest first.
func (r *BookingRepo) ListForOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingDetailQuery+` WHERE of.owner_user_id = ?
		 ORDER BY b.date_created DESC, b.id DESC
		 LIMIT ? OFFSET ?`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

// CountForOwner returns the total bookings behind ListForOwner's pages.
func (r *BookingRepo) CountForOwner(ctx context.Context, ownerID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings b
		   JOIN stocks s ON s.id = b.stock_id
		   JOIN offers o ON o.id = s.offer_id
		   JOIN venues v ON v.id = o.venue_id
		   JOIN offerers of ON of.id = v.offerer_id
		  WHERE of.owner_user_id = ?`, ownerID).Scan(&n)
	return n, err
}

// ListExpiryCandidates returns live, unused bookings of expirable
// subcategories whose creation date passed the matching cutoff: book
// bookings older than bookCutoff, other expirable goods older than
// otherCutoff.
func (r *BookingRepo) ListExpiryCandidates(ctx context.Context, bookCutoff, otherCutoff time.Time) ([]BookingDetail, error) {
	bookIDs := model.SubcategoryIDsWhere(func(s model.Subcategory) bool {
		return s.CanExpire && s.Expiry == model.ExpiryKindBook
	})
	otherIDs := model.SubcategoryIDsWhere(func(s model.Subcategory) bool {
		return s.CanExpire && s.Expiry != model.ExpiryKindBook
	})

	args := make([]any, 0, len(bookIDs)+len(otherIDs)+2)
	var cond strings.Builder
	cond.WriteString("(o.subcategory_id IN (")
	cond.WriteString(placeholders(len(bookIDs)))
	cond.WriteString(") AND b.date_created < ?)")
	for _, id := range bookIDs {
		args = append(args, id)
	}
	args = append(args, bookCutoff)
	cond.WriteString(" OR (o.subcategory_id IN (")
	cond.WriteString(placeholders(len(otherIDs)))
	cond.WriteString(") AND b.date_created < ?)")
	for _, id := range otherIDs {
		args = append(args, id)
	}
	args = append(args, otherCutoff)

	q := bookingDetailQuery +
		" WHERE b.cancellation_date IS NULL AND b.date_used IS NULL AND (" + cond.String() + ")" +
		" ORDER BY b.id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func collectDetails(rows *sql.Rows) ([]BookingDetail, error) {
	out := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// placeholders builds a "?,?,?" list of the given length.
func placeholders(n int) string {
	if n == 0 {
		return "''"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
