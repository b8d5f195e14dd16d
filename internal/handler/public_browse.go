package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
	"github.com/ndelacroix/culture-pass/internal/search"
)

// PublicHandler serves the unauthenticated browse endpoints. These
// routes sit behind the Redis response cache.
type PublicHandler struct {
	Offers  *repository.OfferRepo
	Indexer *search.Indexer
}

func NewPublicHandler(offers *repository.OfferRepo, indexer *search.Indexer) *PublicHandler {
	return &PublicHandler{Offers: offers, Indexer: indexer}
}

// Search lists published offers of validated offerers, optionally
// filtered by a name substring (q).
func (h *PublicHandler) Search(c echo.Context) error {
	limit, offset := pageParams(c)
	q := strings.TrimSpace(c.QueryParam("q"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	offers, err := h.Offers.SearchPublic(ctx, q, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"offers": offers,
		"limit":  limit,
		"offset": offset,
	})
}

// GetOffer returns the public view of one offer with its stocks and
// their remaining quantities.
func (h *PublicHandler) GetOffer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o, err := h.Offers.GetByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	if !o.IsActive || o.IsSoftDeleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	sub, _ := model.SubcategoryByID(o.SubcategoryID)
	stocks, err := h.Offers.PublicStocks(ctx, id, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":             o.ID,
		"name":           o.Name,
		"description":    o.Description,
		"subcategory_id": o.SubcategoryID,
		"subcategory":    sub.Label,
		"is_duo":         o.IsDuo,
		"is_event":       sub.IsEvent,
		"stocks":         stocks,
	})
}

// Popular returns the most-booked offer IDs from the Redis popularity
// index, best first.
func (h *PublicHandler) Popular(c echo.Context) error {
	n := int64(10)
	if v, err := strconv.ParseInt(c.QueryParam("limit"), 10, 64); err == nil && v > 0 && v <= 100 {
		n = v
	}
	ids, err := h.Indexer.TopOfferIDs(c.Request().Context(), n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "index unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"offer_ids": ids})
}

// Subcategories exposes the static catalog so clients can render
// labels and booking rules without hardcoding them.
func (h *PublicHandler) Subcategories(c echo.Context) error {
	out := make([]echo.Map, 0, len(model.Subcategories))
	for _, s := range model.Subcategories {
		out = append(out, echo.Map{
			"id":          s.ID,
			"label":       s.Label,
			"is_event":    s.IsEvent,
			"can_be_duo":  s.CanBeDuo,
			"online_only": s.OnlineOnly,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"subcategories": out})
}
