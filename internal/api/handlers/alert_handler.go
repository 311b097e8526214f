package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopmetrics/stockcast/internal/service"
)

type AlertHandler struct {
	service *service.ForecastService
}

func NewAlertHandler(service *service.ForecastService) *AlertHandler {
	return &AlertHandler{service: service}
}

func (h *AlertHandler) GetRestockAlerts(c *gin.Context) {
	set, err := h.service.GetRestockAlerts(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to assess restock alerts: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, set)
}
