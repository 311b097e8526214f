package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewForecastHandler(nil)
	router := gin.New()
	router.GET("/forecasts/accuracy", h.GetAccuracy)
	router.GET("/forecasts/:product_id", h.GetProductForecasts)
	router.POST("/forecasts/:product_id/generate", h.Generate)
	return router
}

func TestGenerateRejectsInvalidProductID(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/forecasts/abc/generate", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid product_id")
}

func TestGetForecastsRejectsNegativeProductID(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/forecasts/-3", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAccuracyRejectsUnknownHorizon(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/forecasts/accuracy?horizon=14", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "horizon must be one of")
}

func TestGetAccuracyRejectsMalformedProductID(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/forecasts/accuracy?horizon=7&product_id=xyz", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
