package booking

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/testinsure/testinsure/internal/domain/catalog"
	"github.com/testinsure/testinsure/internal/domain/identity"
	"github.com/testinsure/testinsure/internal/domain/insurance"
	"github.com/testinsure/testinsure/internal/platform/auth"
	"github.com/testinsure/testinsure/internal/platform/receipt"
	"github.com/testinsure/testinsure/pkg/pagination"
)

type Handler struct {
	svc      *Service
	renderer receipt.Renderer
}

func NewHandler(svc *Service, renderer receipt.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/bookings", h.CreateBooking)
	api.GET("/bookings/my", h.ListMyBookings)
	api.PUT("/bookings/:id/cancel", h.CancelBooking)
	api.GET("/bookings/:id/bill", h.DownloadBill)

	admin := api.Group("", auth.RequireRole("ADMIN"))
	admin.GET("/bookings/all", h.ListAllBookings)
	admin.PUT("/bookings/:id/pay", h.ProcessPayment)
	admin.GET("/insurance/claims", h.ListClaims)
	admin.PUT("/insurance/claims/:id/approve", h.ApproveClaim)
	admin.PUT("/insurance/claims/:id/reject", h.RejectClaim)
}

type createBookingRequest struct {
	TestID       uuid.UUID  `json:"test_id"`
	SlotID       uuid.UUID  `json:"slot_id"`
	UseInsurance bool       `json:"use_insurance"`
	PolicyID     *uuid.UUID `json:"policy_id"`
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	email := auth.EmailFromContext(c.Request().Context())
	b, err := h.svc.CreateBooking(c.Request().Context(), email, req.TestID, req.SlotID, req.UseInsurance, req.PolicyID)
	if err != nil {
		return mapBookingError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	email := auth.EmailFromContext(c.Request().Context())
	if err := h.svc.CancelBooking(c.Request().Context(), id, email); err != nil {
		return mapBookingError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	b, err := h.svc.ProcessPayment(c.Request().Context(), id)
	if err != nil {
		return mapBookingError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListMyBookings(c echo.Context) error {
	email := auth.EmailFromContext(c.Request().Context())
	bookings, err := h.svc.GetUserBookings(c.Request().Context(), email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *Handler) ListAllBookings(c echo.Context) error {
	p := pagination.FromContext(c)
	bookings, total, err := h.svc.GetAllBookings(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bookings, total, p.Limit, p.Offset))
}

func (h *Handler) DownloadBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	email := auth.EmailFromContext(c.Request().Context())
	bill, err := h.svc.Bill(c.Request().Context(), id, email)
	if err != nil {
		return mapBookingError(err)
	}

	pdf, err := h.renderer.Render(c.Request().Context(), *bill)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "bill rendering failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="bill-`+id.String()+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// -- Claims --

type rejectClaimRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) ListClaims(c echo.Context) error {
	p := pagination.FromContext(c)
	claims, total, err := h.svc.GetAllClaims(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(claims, total, p.Limit, p.Offset))
}

func (h *Handler) ApproveClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	cl, err := h.svc.ApproveClaim(c.Request().Context(), id)
	if err != nil {
		return mapBookingError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) RejectClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req rejectClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cl, err := h.svc.RejectClaim(c.Request().Context(), id, req.Reason)
	if err != nil {
		return mapBookingError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

// mapBookingError translates domain errors into HTTP status codes.
func mapBookingError(err error) error {
	switch {
	case errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrClaimNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, catalog.ErrTestNotFound),
		errors.Is(err, catalog.ErrSlotNotFound),
		errors.Is(err, insurance.ErrPolicyNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAlreadyBooked),
		errors.Is(err, ErrSlotFull),
		errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, insurance.ErrInsufficientCoverage):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrPolicyRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
