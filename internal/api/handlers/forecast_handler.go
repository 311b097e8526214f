package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shopmetrics/stockcast/internal/domain"
	"github.com/shopmetrics/stockcast/internal/forecast"
	"github.com/shopmetrics/stockcast/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// Generate runs a forecast cycle for one product. A product with too
// little history is a normal skipped outcome, not an error response.
func (h *ForecastHandler) Generate(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	result, err := h.service.GenerateForecasts(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			errorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to generate forecasts: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ForecastHandler) GetProductForecasts(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	view, err := h.service.GetProductForecasts(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			errorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load forecasts: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ForecastHandler) GetAccuracy(c *gin.Context) {
	horizon, err := strconv.Atoi(c.DefaultQuery("horizon", "7"))
	if err != nil || !validHorizon(horizon) {
		errorResponse(c, http.StatusBadRequest, "horizon must be one of 1, 7, 30")
		return
	}

	var productID *int64
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid product_id")
			return
		}
		productID = &id
	}

	report, err := h.service.GetAccuracy(c.Request.Context(), horizon, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatchedAccuracyData) {
			c.JSON(http.StatusOK, gin.H{
				"horizon_days":  horizon,
				"matched_pairs": 0,
				"message":       "no graded forecasts in the evaluation window",
			})
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to evaluate accuracy: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ForecastHandler) RunBatch(c *gin.Context) {
	summary, err := h.service.RunBatch(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrBatchRunning) {
			errorResponse(c, http.StatusConflict, "a batch run is already in progress")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "batch run failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, summary)
}

func parseProductID(c *gin.Context) (int64, bool) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		errorResponse(c, http.StatusBadRequest, "invalid product_id")
		return 0, false
	}
	return productID, true
}

func validHorizon(h int) bool {
	for _, known := range forecast.Horizons {
		if h == known {
			return true
		}
	}
	return false
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
