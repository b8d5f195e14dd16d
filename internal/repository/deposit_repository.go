package repository

import (
	"context"
	"database/sql"

	"github.com/ndelacroix/culture-pass/internal/model"
)

// DepositRepo provides access to the deposits table and the derived
// spending figures used by the funds guards.
type DepositRepo struct{ DB *sql.DB }

func NewDepositRepo(db *sql.DB) *DepositRepo { return &DepositRepo{DB: db} }

// Create credits a deposit to a user.
func (r *DepositRepo) Create(ctx context.Context, d *model.Deposit) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO deposits (user_id, amount_cents, source) VALUES (?,?,?)",
		d.UserID, d.AmountCents, d.Source)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// Expenses summarizes a beneficiary's credit and spending.
//
// Fields:
//  CreditCents   – total deposits granted.
//  SpentCents    – sum over all non-cancelled bookings.
//  DigitalCents  – spending on digital-capped subcategories.
//  PhysicalCents – spending on physical-capped subcategories.
type Expenses struct {
	CreditCents   int64
	SpentCents    int64
	DigitalCents  int64
	PhysicalCents int64
}

// RemainingCents is the credit left for new bookings.
func (e Expenses) RemainingCents() int64 { return e.CreditCents - e.SpentCents }

// GetExpenses computes the spending summary in two queries: total
// credit, then spending split into the capped buckets by subcategory.
func (r *DepositRepo) GetExpenses(ctx context.Context, userID uint64) (Expenses, error) {
	var e Expenses
	err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents),0) FROM deposits WHERE user_id=?", userID).Scan(&e.CreditCents)
	if err != nil {
		return Expenses{}, err
	}

	digitalIDs := model.SubcategoryIDsWhere(func(s model.Subcategory) bool { return s.IsDigitalDeposit })
	physicalIDs := model.SubcategoryIDsWhere(func(s model.Subcategory) bool { return s.IsPhysicalDeposit })

	q := `SELECT COALESCE(SUM(b.quantity * b.amount_cents), 0),
	             COALESCE(SUM(CASE WHEN o.subcategory_id IN (` + placeholders(len(digitalIDs)) + `)
	                           THEN b.quantity * b.amount_cents END), 0),
	             COALESCE(SUM(CASE WHEN o.subcategory_id IN (` + placeholders(len(physicalIDs)) + `)
	                           THEN b.quantity * b.amount_cents END), 0)
	        FROM bookings b
	        JOIN stocks s ON s.id = b.stock_id
	        JOIN offers o ON o.id = s.offer_id
	       WHERE b.user_id = ? AND b.cancellation_date IS NULL`
	args := make([]any, 0, len(digitalIDs)+len(physicalIDs)+1)
	for _, id := range digitalIDs {
		args = append(args, id)
	}
	for _, id := range physicalIDs {
		args = append(args, id)
	}
	args = append(args, userID)
	err = r.DB.QueryRowContext(ctx, q, args...).Scan(&e.SpentCents, &e.DigitalCents, &e.PhysicalCents)
	if err != nil {
		return Expenses{}, err
	}
	return e, nil
}

// ListByUser returns a user's deposits, oldest first.
func (r *DepositRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Deposit, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, amount_cents, source, created_at FROM deposits WHERE user_id=? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Deposit, 0)
	for rows.Next() {
		var d model.Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.AmountCents, &d.Source, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
