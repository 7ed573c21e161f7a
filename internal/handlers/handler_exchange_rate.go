package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/dto"
	"github.com/uqar-pharmacy/moneybox/internal/middleware"
)

// exchangeRateHandler handles HTTP requests related to exchange rates.
type exchangeRateHandler struct {
	exchangeRateService portssvc.ExchangeRateSvcFacade
}

// newExchangeRateHandler creates a new exchangeRateHandler.
func newExchangeRateHandler(ers portssvc.ExchangeRateSvcFacade) *exchangeRateHandler {
	return &exchangeRateHandler{
		exchangeRateService: ers,
	}
}

// registerExchangeRateRoutes registers routes related to exchange rates.
func registerExchangeRateRoutes(rg *gin.RouterGroup, exchangeRateService portssvc.ExchangeRateSvcFacade) {
	h := newExchangeRateHandler(exchangeRateService)

	exchangeRates := rg.Group("/exchange-rates")
	{
		exchangeRates.POST("", h.setExchangeRate)
		exchangeRates.GET("", h.listActiveRates)
		exchangeRates.POST("/convert", h.convert)
		exchangeRates.GET("/history/:from/:to", h.rateHistory)
		exchangeRates.GET("/pair/:from/:to", h.ratePair)
		exchangeRates.GET("/quote/:from/:to", h.quote)
		exchangeRates.GET("/:id", h.getExchangeRate)
		exchangeRates.DELETE("/:id", h.deactivateExchangeRate)
	}
}

// setExchangeRate godoc
// @Summary Set the active exchange rate of a currency pair
// @Description Replaces the active rate of the pair and derives the reverse pair's rate.
// @Tags exchange rates
// @Accept  json
// @Produce  json
// @Param   rate body dto.SetExchangeRateRequest true "Exchange Rate details"
// @Success 201 {object} dto.ExchangeRateResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to set exchange rate"
// @Security BearerAuth
// @Router /exchange-rates [post]
func (h *exchangeRateHandler) setExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SetExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetExchangeRate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to set exchange rate",
		slog.String("from", req.FromCurrencyCode),
		slog.String("to", req.ToCurrencyCode),
		slog.String("rate", req.Rate.String()),
	)

	rate, err := h.exchangeRateService.SetRate(c.Request.Context(), domain.SetRateRequest{
		FromCurrencyCode: req.FromCurrencyCode,
		ToCurrencyCode:   req.ToCurrencyCode,
		Rate:             req.Rate,
		Source:           req.Source,
		Notes:            req.Notes,
	}, creatorUserID)
	if err != nil {
		respondError(c, logger, err, "Failed to set exchange rate")
		return
	}

	logger.Info("Exchange rate set successfully", slog.String("rate_id", rate.ExchangeRateID))
	c.JSON(http.StatusCreated, dto.ToExchangeRateResponse(rate))
}

func (h *exchangeRateHandler) listActiveRates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	rates, err := h.exchangeRateService.ListActiveRates(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list exchange rates")
		return
	}
	c.JSON(http.StatusOK, dto.ToListExchangeRateResponse(rates))
}

func (h *exchangeRateHandler) getExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	rate, err := h.exchangeRateService.GetRate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rate")
		return
	}
	c.JSON(http.StatusOK, dto.ToExchangeRateResponse(rate))
}

// deactivateExchangeRate closes an active rate and the active rate of its reverse pair.
func (h *exchangeRateHandler) deactivateExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rateID := c.Param("id")
	if err := h.exchangeRateService.DeactivateRate(c.Request.Context(), rateID, userID); err != nil {
		respondError(c, logger, err, "Failed to deactivate exchange rate")
		return
	}
	logger.Info("Exchange rate deactivated", slog.String("rate_id", rateID))
	c.Status(http.StatusNoContent)
}

func (h *exchangeRateHandler) rateHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fromCode, toCode := c.Param("from"), c.Param("to")
	if len(fromCode) != 3 || len(toCode) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency codes must be 3 letters"})
		return
	}

	rates, err := h.exchangeRateService.RateHistory(c.Request.Context(), fromCode, toCode)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rate history")
		return
	}
	c.JSON(http.StatusOK, dto.ToListExchangeRateResponse(rates))
}

// ratePair returns the active rates of both directions of a pair.
func (h *exchangeRateHandler) ratePair(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fromCode, toCode := c.Param("from"), c.Param("to")
	if len(fromCode) != 3 || len(toCode) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency codes must be 3 letters"})
		return
	}

	rates, err := h.exchangeRateService.RatePair(c.Request.Context(), fromCode, toCode)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rate pair")
		return
	}
	c.JSON(http.StatusOK, dto.ToListExchangeRateResponse(rates))
}

// quote godoc
// @Summary Get the rate a conversion would use now
// @Description The provenance tells whether the rate came from the directory or from the fallback anchors.
// @Tags exchange rates
// @Produce  json
// @Param   from path string true "From Currency Code (3 letters)" MinLength(3) MaxLength(3)
// @Param   to   path string true "To Currency Code (3 letters)" MinLength(3) MaxLength(3)
// @Success 200 {object} dto.RateQuoteResponse
// @Failure 404 {object} map[string]string "No rate for the pair"
// @Security BearerAuth
// @Router /exchange-rates/quote/{from}/{to} [get]
func (h *exchangeRateHandler) quote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fromCode, toCode := c.Param("from"), c.Param("to")
	if len(fromCode) != 3 || len(toCode) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency codes must be 3 letters"})
		return
	}

	q, err := h.exchangeRateService.Rate(c.Request.Context(), fromCode, toCode)
	if err != nil {
		respondError(c, logger, err, "Failed to quote exchange rate")
		return
	}
	c.JSON(http.StatusOK, dto.ToRateQuoteResponse(q))
}

// convert never fails on an unknown pair; the response then carries the FAILED provenance.
func (h *exchangeRateHandler) convert(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Convert", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	conv := h.exchangeRateService.Convert(c.Request.Context(), req.Amount, req.FromCurrencyCode, req.ToCurrencyCode)
	c.JSON(http.StatusOK, dto.ToConversionResponse(conv))
}
