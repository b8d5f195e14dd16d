// Package bookings implements the booking lifecycle: creation with its
// guard chain, beneficiary and offerer cancellation, countermark
// validation and the expiry sweep.
package bookings

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ndelacroix/culture-pass/internal/config"
	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/queue"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// Stores are the persistence ports of the service. The repository
// types satisfy them; tests substitute in-memory fakes.
type (
	UserStore interface {
		GetByID(ctx context.Context, id uint64) (model.User, error)
	}
	StockStore interface {
		GetDetail(ctx context.Context, stockID uint64) (repository.StockDetail, error)
	}
	BookingStore interface {
		Create(ctx context.Context, b *model.Booking) error
		GetDetail(ctx context.Context, bookingID uint64) (repository.BookingDetail, error)
		GetDetailByToken(ctx context.Context, token string) (repository.BookingDetail, error)
		HasActiveBookingForOffer(ctx context.Context, userID, offerID uint64) (bool, error)
		MarkCancelled(ctx context.Context, bookingID uint64, reason string, at time.Time) error
		MarkUsed(ctx context.Context, bookingID uint64, at time.Time) error
		MarkUnused(ctx context.Context, bookingID uint64) error
		ListExpiryCandidates(ctx context.Context, bookCutoff, otherCutoff time.Time) ([]repository.BookingDetail, error)
	}
	DepositStore interface {
		GetExpenses(ctx context.Context, userID uint64) (repository.Expenses, error)
	}
	EventPublisher interface {
		BookingCreated(ctx context.Context, e queue.BookingCreatedEvent) error
		BookingCancelled(ctx context.Context, e queue.BookingCancelledEvent) error
		OfferReindex(ctx context.Context, e queue.OfferReindexEvent) error
	}
)

// Service orchestrates the booking lifecycle over the stores. Events
// are published after the database write and are best-effort: a broker
// outage never fails the request.
type Service struct {
	users    UserStore
	stocks   StockStore
	bookings BookingStore
	deposits DepositStore
	events   EventPublisher
	policy   config.BookingPolicy
	log      *zap.Logger
	now      func() time.Time
}

func NewService(users UserStore, stocks StockStore, bookings BookingStore, deposits DepositStore, events EventPublisher, policy config.BookingPolicy, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		stocks:   stocks,
		bookings: bookings,
		deposits: deposits,
		events:   events,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// ConfirmationDateOf derives the cancellation deadline of a booking
// from its stock's event date.
func (s *Service) ConfirmationDateOf(d repository.BookingDetail) *time.Time {
	return ConfirmationDate(d.BeginningAt, d.Booking.DateCreated, s.now(), s.policy)
}

// StatusOf derives the lifecycle state of a booking at this instant.
func (s *Service) StatusOf(d repository.BookingDetail) model.BookingStatus {
	return d.Booking.Status(s.ConfirmationDateOf(d), s.now())
}

// BookOffer runs the guard chain and records a booking on the stock.
// Guard order: booking rights, already-booked, quantity, bookability,
// free-offer rights, expense limits; the first violation wins. The
// database trigger re-checks quantity and funds, so a concurrent racer
// surfaces as the same sentinel the guard would have returned.
func (s *Service) BookOffer(ctx context.Context, userID, stockID uint64, quantity int32) (repository.BookingDetail, error) {
	d, err := s.bookOffer(ctx, userID, stockID, quantity)
	observe("book", err)
	return d, err
}

func (s *Service) bookOffer(ctx context.Context, userID, stockID uint64, quantity int32) (repository.BookingDetail, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if !user.CanBook() {
		return repository.BookingDetail{}, ErrUserCannotBook
	}
	stock, err := s.stocks.GetDetail(ctx, stockID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	already, err := s.bookings.HasActiveBookingForOffer(ctx, userID, stock.OfferID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if already {
		return repository.BookingDetail{}, ErrOfferAlreadyBooked
	}
	if err := checkQuantity(stock, quantity); err != nil {
		return repository.BookingDetail{}, err
	}
	if err := checkStockBookable(stock, quantity, s.now()); err != nil {
		return repository.BookingDetail{}, err
	}
	expenses, err := s.deposits.GetExpenses(ctx, userID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if stock.Stock.PriceCents == 0 && expenses.CreditCents == 0 {
		return repository.BookingDetail{}, ErrCannotBookFreeOffer
	}
	if err := checkExpenseLimits(stock, quantity, expenses, s.policy); err != nil {
		return repository.BookingDetail{}, err
	}

	booking := &model.Booking{
		UserID:      userID,
		StockID:     stockID,
		Quantity:    quantity,
		AmountCents: stock.Stock.PriceCents,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		switch {
		case errors.Is(err, repository.ErrTooManyBookings):
			return repository.BookingDetail{}, ErrNotEnoughStock
		case errors.Is(err, repository.ErrInsufficientFunds):
			return repository.BookingDetail{}, ErrInsufficientFunds
		}
		return repository.BookingDetail{}, err
	}

	detail, err := s.bookings.GetDetail(ctx, booking.ID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	s.publishCreated(ctx, detail)
	return detail, nil
}

// CancelByBeneficiary cancels the beneficiary's own booking while it is
// still PENDING.
func (s *Service) CancelByBeneficiary(ctx context.Context, userID, bookingID uint64) (repository.BookingDetail, error) {
	d, err := s.cancelByBeneficiary(ctx, userID, bookingID)
	observe("cancel_beneficiary", err)
	return d, err
}

func (s *Service) cancelByBeneficiary(ctx context.Context, userID, bookingID uint64) (repository.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if d.Booking.UserID != userID {
		return repository.BookingDetail{}, repository.ErrForbidden
	}
	if d.Booking.IsCancelled() {
		return repository.BookingDetail{}, ErrBookingAlreadyCancelled
	}
	if d.Booking.IsUsed() {
		return repository.BookingDetail{}, ErrBookingAlreadyUsed
	}
	if s.StatusOf(d) == model.BookingStatusConfirmed {
		return repository.BookingDetail{}, ErrCannotCancelConfirmed
	}
	return s.cancel(ctx, d, model.CancelReasonBeneficiary)
}

// CancelByOfferer cancels a booking taken against the pro user's
// offer, at any point before validation.
func (s *Service) CancelByOfferer(ctx context.Context, ownerID, bookingID uint64) (repository.BookingDetail, error) {
	d, err := s.cancelByOfferer(ctx, ownerID, bookingID)
	observe("cancel_offerer", err)
	return d, err
}

func (s *Service) cancelByOfferer(ctx context.Context, ownerID, bookingID uint64) (repository.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if d.OwnerUserID != ownerID {
		return repository.BookingDetail{}, repository.ErrForbidden
	}
	if d.Booking.IsCancelled() {
		return repository.BookingDetail{}, ErrBookingAlreadyCancelled
	}
	if d.Booking.IsUsed() {
		return repository.BookingDetail{}, ErrBookingAlreadyUsed
	}
	return s.cancel(ctx, d, model.CancelReasonOfferer)
}

func (s *Service) cancel(ctx context.Context, d repository.BookingDetail, reason string) (repository.BookingDetail, error) {
	at := s.now()
	if err := s.bookings.MarkCancelled(ctx, d.Booking.ID, reason, at); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return repository.BookingDetail{}, ErrBookingAlreadyCancelled
		}
		return repository.BookingDetail{}, err
	}
	d.Booking.CancellationDate = &at
	d.Booking.CancellationReason = &reason
	s.publishCancelled(ctx, d, reason, at)
	return d, nil
}

// GetByToken resolves a countermark for the owning pro user.
func (s *Service) GetByToken(ctx context.Context, ownerID uint64, token string) (repository.BookingDetail, error) {
	d, err := s.bookings.GetDetailByToken(ctx, token)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if d.OwnerUserID != ownerID {
		return repository.BookingDetail{}, repository.ErrForbidden
	}
	return d, nil
}

// MarkAsUsed validates a countermark at the venue. Event bookings can
// only be validated once past their cancellation deadline.
func (s *Service) MarkAsUsed(ctx context.Context, ownerID uint64, token string) (repository.BookingDetail, error) {
	d, err := s.markAsUsed(ctx, ownerID, token)
	observe("mark_used", err)
	return d, err
}

func (s *Service) markAsUsed(ctx context.Context, ownerID uint64, token string) (repository.BookingDetail, error) {
	d, err := s.GetByToken(ctx, ownerID, token)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if d.Booking.IsCancelled() {
		return repository.BookingDetail{}, ErrBookingAlreadyCancelled
	}
	if d.Booking.IsUsed() {
		return repository.BookingDetail{}, ErrBookingAlreadyUsed
	}
	if d.BeginningAt != nil && s.StatusOf(d) == model.BookingStatusPending {
		return repository.BookingDetail{}, ErrBookingNotConfirmed
	}
	at := s.now()
	if err := s.bookings.MarkUsed(ctx, d.Booking.ID, at); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return repository.BookingDetail{}, ErrBookingAlreadyUsed
		}
		return repository.BookingDetail{}, err
	}
	d.Booking.DateUsed = &at
	return d, nil
}

// MarkAsUnused reverts an accidental validation as long as the booking
// has not entered reimbursement.
func (s *Service) MarkAsUnused(ctx context.Context, ownerID uint64, token string) (repository.BookingDetail, error) {
	d, err := s.markAsUnused(ctx, ownerID, token)
	observe("mark_unused", err)
	return d, err
}

func (s *Service) markAsUnused(ctx context.Context, ownerID uint64, token string) (repository.BookingDetail, error) {
	d, err := s.GetByToken(ctx, ownerID, token)
	if err != nil {
		return repository.BookingDetail{}, err
	}
	if !d.Booking.IsUsed() {
		return repository.BookingDetail{}, ErrBookingNotUsed
	}
	if d.Booking.ReimbursementDate != nil {
		return repository.BookingDetail{}, ErrBookingRefunded
	}
	if err := s.bookings.MarkUnused(ctx, d.Booking.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return repository.BookingDetail{}, ErrBookingRefunded
		}
		return repository.BookingDetail{}, err
	}
	d.Booking.DateUsed = nil
	return d, nil
}

// ExpireOverdue cancels unused bookings of expirable goods past their
// delay and returns how many were swept. Individual failures are
// logged and skipped so one bad row never stalls the sweep.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.bookings.ListExpiryCandidates(ctx,
		now.Add(-s.policy.ExpiryBooks), now.Add(-s.policy.ExpiryOther))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, d := range candidates {
		if err := s.bookings.MarkCancelled(ctx, d.Booking.ID, model.CancelReasonExpired, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue // cancelled concurrently
			}
			s.log.Error("expire booking failed",
				zap.Uint64("booking_id", d.Booking.ID), zap.Error(err))
			continue
		}
		expired++
		expiredTotal.Inc()
		s.publishCancelled(ctx, d, model.CancelReasonExpired, now)
	}
	if expired > 0 {
		s.log.Info("expiry sweep done",
			zap.Int("expired", expired), zap.Int("candidates", len(candidates)))
	}
	return expired, nil
}

func (s *Service) publishCreated(ctx context.Context, d repository.BookingDetail) {
	ev := queue.BookingCreatedEvent{
		BookingID:     d.Booking.ID,
		Token:         d.Booking.Token,
		UserID:        d.Booking.UserID,
		UserEmail:     d.UserEmail,
		OfferID:       d.OfferID,
		OfferName:     d.OfferName,
		SubcategoryID: d.SubcategoryID,
		VenueName:     d.VenueName,
		Quantity:      d.Booking.Quantity,
		TotalCents:    d.Booking.TotalCents(),
		CreatedAt:     d.Booking.DateCreated.UTC().Format(time.RFC3339),
	}
	if d.BeginningAt != nil {
		iso := d.BeginningAt.UTC().Format(time.RFC3339)
		ev.BeginningAt = &iso
	}
	if err := s.events.BookingCreated(ctx, ev); err != nil {
		s.log.Warn("publish booking.created failed",
			zap.Uint64("booking_id", d.Booking.ID), zap.Error(err))
	}
	s.reindex(ctx, d.OfferID)
}

func (s *Service) publishCancelled(ctx context.Context, d repository.BookingDetail, reason string, at time.Time) {
	ev := queue.BookingCancelledEvent{
		BookingID:   d.Booking.ID,
		Token:       d.Booking.Token,
		UserID:      d.Booking.UserID,
		UserEmail:   d.UserEmail,
		OfferID:     d.OfferID,
		OfferName:   d.OfferName,
		Reason:      reason,
		CancelledAt: at.UTC().Format(time.RFC3339),
	}
	if err := s.events.BookingCancelled(ctx, ev); err != nil {
		s.log.Warn("publish booking.cancelled failed",
			zap.Uint64("booking_id", d.Booking.ID), zap.Error(err))
	}
	s.reindex(ctx, d.OfferID)
}

func (s *Service) reindex(ctx context.Context, offerID uint64) {
	if err := s.events.OfferReindex(ctx, queue.OfferReindexEvent{OfferID: offerID}); err != nil {
		s.log.Warn("publish offer.reindex failed",
			zap.Uint64("offer_id", offerID), zap.Error(err))
	}
}
