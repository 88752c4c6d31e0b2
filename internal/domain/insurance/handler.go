package insurance

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/testinsure/testinsure/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/insurance/policies", h.ListMyPolicies)
	api.POST("/insurance/policies", h.AddPolicy)
}

func (h *Handler) AddPolicy(c echo.Context) error {
	var p Policy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	email := auth.EmailFromContext(c.Request().Context())
	if err := h.svc.AddPolicy(c.Request().Context(), &p, email); err != nil {
		if errors.Is(err, ErrPolicyNumberTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListMyPolicies(c echo.Context) error {
	email := auth.EmailFromContext(c.Request().Context())
	policies, err := h.svc.ListUserPolicies(c.Request().Context(), email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, policies)
}
