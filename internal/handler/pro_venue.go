package handler

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// ProVenueHandler manages offerers and their venues.
type ProVenueHandler struct {
	Offerers *repository.OffererRepo
}

func NewProVenueHandler(offerers *repository.OffererRepo) *ProVenueHandler {
	return &ProVenueHandler{Offerers: offerers}
}

var sirenRe = regexp.MustCompile(`^\d{9}$`)

type createOffererReq struct {
	Name  string `json:"name"`
	Siren string `json:"siren"`
}

// CreateOfferer registers a new legal structure for the pro user. The
// offerer starts unvalidated: its stocks stay unbookable until the
// validation workflow completes.
func (h *ProVenueHandler) CreateOfferer(c echo.Context) error {
	var req createOffererReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Siren = strings.TrimSpace(req.Siren)
	if req.Name == "" || !sirenRe.MatchString(req.Siren) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and 9-digit siren required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o := &model.Offerer{OwnerUserID: middleware.UserID(c), Name: req.Name, Siren: req.Siren}
	if err := h.Offerers.CreateOfferer(ctx, o); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "siren already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create offerer failed"})
	}
	return c.JSON(http.StatusCreated, offererView(*o))
}

// ListOfferers returns the pro user's structures.
func (h *ProVenueHandler) ListOfferers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Offerers.ListOfferersByOwner(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]echo.Map, 0, len(list))
	for _, o := range list {
		views = append(views, offererView(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"offerers": views})
}

// GetOfferer returns one structure owned by the caller.
func (h *ProVenueHandler) GetOfferer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offerer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o, err := h.Offerers.GetOffererForOwner(ctx, id, middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, offererView(o))
}

// ValidateOfferer marks the structure validated. Stands in for the
// compliance workflow, which in production is driven by back-office
// staff rather than the pro.
func (h *ProVenueHandler) ValidateOfferer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offerer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Offerers.GetOffererForOwner(ctx, id, middleware.UserID(c)); err != nil {
		return domainError(c, err)
	}
	if err := h.Offerers.ValidateOfferer(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "offerer validated"})
}

type createVenueReq struct {
	OffererID  uint64 `json:"offerer_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	IsVirtual  bool   `json:"is_virtual"`
}

// CreateVenue adds a venue under one of the caller's offerers.
// Physical venues need an address; virtual ones must not have one.
func (h *ProVenueHandler) CreateVenue(c echo.Context) error {
	var req createVenueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.OffererID == 0 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offerer_id and name required"})
	}
	if req.IsVirtual && (req.Address != "" || req.PostalCode != "" || req.City != "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "virtual venue cannot carry an address"})
	}
	if !req.IsVirtual && (req.Address == "" || req.PostalCode == "" || req.City == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address, postal_code and city required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v := &model.Venue{
		OffererID:  req.OffererID,
		Name:       req.Name,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		City:       req.City,
		IsVirtual:  req.IsVirtual,
	}
	if err := h.Offerers.CreateVenue(ctx, middleware.UserID(c), v); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, venueView(*v))
}

// ListVenues returns the venues of one of the caller's offerers.
func (h *ProVenueHandler) ListVenues(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offerer id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.Offerers.ListVenuesByOfferer(ctx, id, middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	views := make([]echo.Map, 0, len(list))
	for _, v := range list {
		views = append(views, venueView(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": views})
}

func offererView(o model.Offerer) echo.Map {
	return echo.Map{
		"id":           o.ID,
		"name":         o.Name,
		"siren":        o.Siren,
		"is_active":    o.IsActive,
		"validated_at": o.ValidatedAt,
		"created_at":   o.CreatedAt,
	}
}

func venueView(v model.Venue) echo.Map {
	return echo.Map{
		"id":          v.ID,
		"offerer_id":  v.OffererID,
		"name":        v.Name,
		"address":     v.Address,
		"postal_code": v.PostalCode,
		"city":        v.City,
		"is_virtual":  v.IsVirtual,
		"is_active":   v.IsActive,
		"created_at":  v.CreatedAt,
	}
}
