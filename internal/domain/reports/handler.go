package reports

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/testinsure/testinsure/internal/domain/booking"
	"github.com/testinsure/testinsure/internal/platform/auth"
	"github.com/testinsure/testinsure/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports/download/:bookingId", h.Download)

	admin := api.Group("", auth.RequireRole("ADMIN"))
	admin.POST("/reports/upload", h.Upload)
}

// Upload accepts a multipart form with "bookingId" and "file" parts and
// attaches the file to the booking.
func (h *Handler) Upload(c echo.Context) error {
	bookingID, err := uuid.Parse(c.FormValue("bookingId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	email := auth.EmailFromContext(c.Request().Context())
	rep, err := h.svc.Upload(c.Request().Context(), bookingID, email,
		fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
	if err != nil {
		return mapReportError(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) Download(c echo.Context) error {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	ctx := c.Request().Context()
	rc, rep, contentType, err := h.svc.Download(ctx, bookingID, auth.EmailFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return mapReportError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rep.FileName+`"`)
	return c.Stream(http.StatusOK, contentType, rc)
}

func mapReportError(err error) error {
	switch {
	case errors.Is(err, ErrReportNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
