package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness and the number of open dashboard views.
type HealthHandler struct {
	views func() int
}

// NewHealthHandler creates a HealthHandler. views may be nil.
func NewHealthHandler(views func() int) *HealthHandler {
	return &HealthHandler{views: views}
}

type healthResponse struct {
	Status string `json:"status"`
	Views  int    `json:"views"`
}

// HealthGet handles GET /health.
func (hh *HealthHandler) HealthGet(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	if hh.views != nil {
		resp.Views = hh.views()
	}
	return c.JSON(http.StatusOK, resp)
}
