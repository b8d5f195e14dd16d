package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// ProOfferHandler manages offers and their stocks.
type ProOfferHandler struct {
	Offers   *repository.OfferRepo
	Stocks   *repository.StockRepo
	Offerers *repository.OffererRepo
}

func NewProOfferHandler(offers *repository.OfferRepo, stocks *repository.StockRepo, offerers *repository.OffererRepo) *ProOfferHandler {
	return &ProOfferHandler{Offers: offers, Stocks: stocks, Offerers: offerers}
}

type createOfferReq struct {
	VenueID       uint64 `json:"venue_id"`
	SubcategoryID string `json:"subcategory_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsDuo         bool   `json:"is_duo"`
}

// CreateOffer registers an offer on one of the caller's venues. The
// subcategory catalog drives what is allowed: duo only where the
// subcategory permits it, online-only subcategories on virtual venues
// and physical goods on physical ones.
func (h *ProOfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.VenueID == 0 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id and name required"})
	}
	sub, ok := model.SubcategoryByID(strings.TrimSpace(req.SubcategoryID))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown subcategory"})
	}
	if req.IsDuo && !sub.CanBeDuo {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subcategory does not allow duo offers"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid := middleware.UserID(c)
	venue, err := h.Offerers.GetVenueForOwner(ctx, req.VenueID, uid)
	if err != nil {
		return domainError(c, err)
	}
	if sub.OnlineOnly && !venue.IsVirtual {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "digital offers require a virtual venue"})
	}
	if !sub.OnlineOnly && venue.IsVirtual {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "physical offers require a physical venue"})
	}

	o := &model.Offer{
		VenueID:       req.VenueID,
		SubcategoryID: sub.ID,
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		IsDuo:         req.IsDuo,
	}
	if err := h.Offers.Create(ctx, uid, o); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, offerView(*o))
}

// GetOffer returns one of the caller's offers with its stocks.
func (h *ProOfferHandler) GetOffer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o, err := h.Offers.GetForOwner(ctx, id, middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	stocks, err := h.Stocks.ListByOffer(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	stockViews := make([]echo.Map, 0, len(stocks))
	for _, s := range stocks {
		stockViews = append(stockViews, stockView(s))
	}
	view := offerView(o)
	view["stocks"] = stockViews
	return c.JSON(http.StatusOK, view)
}

// ListOffers returns the offers of one of the caller's venues.
func (h *ProOfferHandler) ListOffers(c echo.Context) error {
	venueID, err := strconv.ParseUint(c.QueryParam("venue_id"), 10, 64)
	if err != nil || venueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Offers.ListByVenueForOwner(ctx, venueID, middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	views := make([]echo.Map, 0, len(list))
	for _, o := range list {
		views = append(views, offerView(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": views})
}

type setActiveReq struct {
	IsActive bool `json:"is_active"`
}

// SetOfferActive publishes or unpublishes an offer.
func (h *ProOfferHandler) SetOfferActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Offers.SetActive(ctx, id, middleware.UserID(c), req.IsActive); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "offer updated"})
}

// DeleteOffer soft-deletes an offer without active bookings.
func (h *ProOfferHandler) DeleteOffer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Offers.SoftDelete(ctx, id, middleware.UserID(c)); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "offer has active bookings"})
		}
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "offer deleted"})
}

type stockReq struct {
	OfferID        uint64     `json:"offer_id"`
	PriceCents     int64      `json:"price_cents"`
	Quantity       *int32     `json:"quantity"`         // null = unlimited
	BeginningAt    *time.Time `json:"beginning_at"`     // required for event offers
	BookingLimitAt *time.Time `json:"booking_limit_at"` // optional
}

func (h *ProOfferHandler) validateStockReq(ctx context.Context, ownerID uint64, req stockReq) (string, error) {
	if req.PriceCents < 0 {
		return "price_cents must be >= 0", nil
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return "quantity must be >= 0", nil
	}
	o, err := h.Offers.GetForOwner(ctx, req.OfferID, ownerID)
	if err != nil {
		return "", err
	}
	sub, ok := model.SubcategoryByID(o.SubcategoryID)
	if !ok {
		return "unknown subcategory", nil
	}
	if sub.IsEvent && req.BeginningAt == nil {
		return "beginning_at required for event offers", nil
	}
	if !sub.IsEvent && req.BeginningAt != nil {
		return "beginning_at not allowed for non-event offers", nil
	}
	if req.BeginningAt != nil && req.BookingLimitAt != nil && req.BookingLimitAt.After(*req.BeginningAt) {
		return "booking_limit_at must not be after beginning_at", nil
	}
	return "", nil
}

// CreateStock adds a stock under one of the caller's offers.
func (h *ProOfferHandler) CreateStock(c echo.Context) error {
	var req stockReq
	if err := c.Bind(&req); err != nil || req.OfferID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid := middleware.UserID(c)
	if msg, err := h.validateStockReq(ctx, uid, req); err != nil {
		return domainError(c, err)
	} else if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	s := &model.Stock{
		OfferID:        req.OfferID,
		PriceCents:     req.PriceCents,
		Quantity:       req.Quantity,
		BeginningAt:    req.BeginningAt,
		BookingLimitAt: req.BookingLimitAt,
	}
	if err := h.Stocks.Create(ctx, uid, s); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, stockView(*s))
}

// UpdateStock rewrites the price, quantity and datetimes of a stock.
func (h *ProOfferHandler) UpdateStock(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	var req stockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid := middleware.UserID(c)
	detail, err := h.Stocks.GetDetail(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	req.OfferID = detail.OfferID
	if msg, err := h.validateStockReq(ctx, uid, req); err != nil {
		return domainError(c, err)
	} else if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if err := h.Stocks.Update(ctx, uid, id, req.PriceCents, req.Quantity, req.BeginningAt, req.BookingLimitAt); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "stock updated"})
}

// DeleteStock soft-deletes a stock without active bookings.
func (h *ProOfferHandler) DeleteStock(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Stocks.SoftDelete(ctx, middleware.UserID(c), id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "stock has active bookings"})
		}
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "stock deleted"})
}

func offerView(o model.Offer) echo.Map {
	return echo.Map{
		"id":             o.ID,
		"venue_id":       o.VenueID,
		"subcategory_id": o.SubcategoryID,
		"name":           o.Name,
		"description":    o.Description,
		"is_duo":         o.IsDuo,
		"is_active":      o.IsActive,
		"created_at":     o.CreatedAt,
	}
}

func stockView(s model.Stock) echo.Map {
	return echo.Map{
		"id":               s.ID,
		"offer_id":         s.OfferID,
		"price_cents":      s.PriceCents,
		"quantity":         s.Quantity,
		"beginning_at":     s.BeginningAt,
		"booking_limit_at": s.BookingLimitAt,
	}
}
