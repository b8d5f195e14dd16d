package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

func int32p(v int32) *int32 { return &v }

func bookableDetail() repository.StockDetail {
	return repository.StockDetail{
		Stock: model.Stock{
			ID:         1,
			OfferID:    10,
			PriceCents: 1500,
		},
		Remaining:        int32p(5),
		OfferID:          10,
		OfferName:        "Concert du soir",
		SubcategoryID:    "CONCERT",
		IsDuo:            true,
		OfferIsActive:    true,
		VenueIsActive:    true,
		OffererIsActive:  true,
		OffererValidated: true,
	}
}

func TestCheckQuantity(t *testing.T) {
	duo := bookableDetail()
	solo := bookableDetail()
	solo.IsDuo = false

	cases := []struct {
		name     string
		detail   repository.StockDetail
		quantity int32
		want     error
	}{
		{"one on solo", solo, 1, nil},
		{"one on duo", duo, 1, nil},
		{"two on duo", duo, 2, nil},
		{"two on solo", solo, 2, ErrQuantityInvalid},
		{"zero", duo, 0, ErrQuantityInvalid},
		{"negative", duo, -1, ErrQuantityInvalid},
		{"three on duo", duo, 3, ErrQuantityInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, checkQuantity(tc.detail, tc.quantity), tc.want)
		})
	}
}

func TestCheckStockBookable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(72 * time.Hour)

	cases := []struct {
		name   string
		mutate func(*repository.StockDetail)
		want   error
	}{
		{"ok", func(*repository.StockDetail) {}, nil},
		{"stock deleted", func(d *repository.StockDetail) { d.Stock.IsSoftDeleted = true }, ErrStockNotBookable},
		{"offer deleted", func(d *repository.StockDetail) { d.OfferIsSoftDeleted = true }, ErrStockNotBookable},
		{"offer inactive", func(d *repository.StockDetail) { d.OfferIsActive = false }, ErrStockNotBookable},
		{"venue inactive", func(d *repository.StockDetail) { d.VenueIsActive = false }, ErrStockNotBookable},
		{"offerer inactive", func(d *repository.StockDetail) { d.OffererIsActive = false }, ErrStockNotBookable},
		{"offerer unvalidated", func(d *repository.StockDetail) { d.OffererValidated = false }, ErrStockNotBookable},
		{"limit passed", func(d *repository.StockDetail) { d.Stock.BookingLimitAt = &past }, ErrStockNotBookable},
		{"event started", func(d *repository.StockDetail) { d.Stock.BeginningAt = &past }, ErrStockNotBookable},
		{"future event ok", func(d *repository.StockDetail) { d.Stock.BeginningAt = &future }, nil},
		{"sold out", func(d *repository.StockDetail) { d.Remaining = int32p(0) }, ErrNotEnoughStock},
		{"one left, duo wanted", func(d *repository.StockDetail) { d.Remaining = int32p(1) }, ErrNotEnoughStock},
		{"unlimited", func(d *repository.StockDetail) { d.Remaining = nil }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := bookableDetail()
			tc.mutate(&d)
			assert.ErrorIs(t, checkStockBookable(d, 2, now), tc.want)
		})
	}
}

func TestCheckExpenseLimits(t *testing.T) {
	base := repository.Expenses{CreditCents: 50000}

	t.Run("free booking always fits", func(t *testing.T) {
		d := bookableDetail()
		d.Stock.PriceCents = 0
		broke := repository.Expenses{CreditCents: 50000, SpentCents: 50000}
		assert.NoError(t, checkExpenseLimits(d, 1, broke, testPolicy))
	})

	t.Run("overall credit exceeded", func(t *testing.T) {
		d := bookableDetail()
		d.Stock.PriceCents = 30000
		e := base
		e.SpentCents = 25000
		assert.ErrorIs(t, checkExpenseLimits(d, 1, e, testPolicy), ErrInsufficientFunds)
	})

	t.Run("duo total counted", func(t *testing.T) {
		d := bookableDetail()
		d.Stock.PriceCents = 30000
		// one ticket fits, two do not
		assert.NoError(t, checkExpenseLimits(d, 1, base, testPolicy))
		assert.ErrorIs(t, checkExpenseLimits(d, 2, base, testPolicy), ErrInsufficientFunds)
	})

	t.Run("digital cap", func(t *testing.T) {
		d := bookableDetail()
		d.SubcategoryID = "VOD"
		d.Stock.PriceCents = 5000
		e := base
		e.DigitalCents = 18000
		assert.ErrorIs(t, checkExpenseLimits(d, 1, e, testPolicy), ErrDigitalLimitReached)
	})

	t.Run("physical cap", func(t *testing.T) {
		d := bookableDetail()
		d.SubcategoryID = "LIVRE_PAPIER"
		d.Stock.PriceCents = 5000
		e := base
		e.PhysicalCents = 19000
		assert.ErrorIs(t, checkExpenseLimits(d, 1, e, testPolicy), ErrPhysicalLimitReached)
	})

	t.Run("event spending ignores caps", func(t *testing.T) {
		// CONCERT is neither digital nor physical; only overall credit
		// applies.
		d := bookableDetail()
		d.Stock.PriceCents = 25000
		e := base
		e.DigitalCents = 20000
		e.PhysicalCents = 20000
		assert.NoError(t, checkExpenseLimits(d, 1, e, testPolicy))
	})
}
