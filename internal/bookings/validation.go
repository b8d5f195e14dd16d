package bookings

import (
	"time"

	"github.com/ndelacroix/culture-pass/internal/config"
	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// maxQuantity is the largest bookable quantity, reached on duo offers.
const maxQuantity = 2

// checkQuantity enforces quantity 1, or up to 2 on duo offers.
func checkQuantity(d repository.StockDetail, quantity int32) error {
	if quantity < 1 || quantity > maxQuantity {
		return ErrQuantityInvalid
	}
	if quantity == maxQuantity && !d.IsDuo {
		return ErrQuantityInvalid
	}
	return nil
}

// checkStockBookable is the bookability predicate: the stock, its
// offer, venue and offerer must all be live, the booking window open
// and quantity remaining.
func checkStockBookable(d repository.StockDetail, quantity int32, now time.Time) error {
	switch {
	case d.Stock.IsSoftDeleted,
		d.OfferIsSoftDeleted,
		!d.OfferIsActive,
		!d.VenueIsActive,
		!d.OffererIsActive,
		!d.OffererValidated:
		return ErrStockNotBookable
	}
	if d.Stock.BookingLimitAt != nil && !now.Before(*d.Stock.BookingLimitAt) {
		return ErrStockNotBookable
	}
	if d.Stock.BeginningAt != nil && !now.Before(*d.Stock.BeginningAt) {
		return ErrStockNotBookable
	}
	if d.Remaining != nil && *d.Remaining < quantity {
		return ErrNotEnoughStock
	}
	return nil
}

// checkExpenseLimits verifies the booking fits the beneficiary's
// remaining credit and the per-bucket caps of its subcategory.
func checkExpenseLimits(d repository.StockDetail, quantity int32, e repository.Expenses, policy config.BookingPolicy) error {
	total := d.Stock.PriceCents * int64(quantity)
	if total == 0 {
		return nil
	}
	if e.SpentCents+total > e.CreditCents {
		return ErrInsufficientFunds
	}
	sub, ok := model.SubcategoryByID(d.SubcategoryID)
	if !ok {
		return ErrStockNotBookable
	}
	if sub.IsDigitalDeposit && e.DigitalCents+total > policy.DigitalCapCents {
		return ErrDigitalLimitReached
	}
	if sub.IsPhysicalDeposit && e.PhysicalCents+total > policy.PhysicalCapCents {
		return ErrPhysicalLimitReached
	}
	return nil
}
