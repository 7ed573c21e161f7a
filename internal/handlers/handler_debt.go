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

// debtHandler handles HTTP requests for customer debts.
type debtHandler struct {
	debtService portssvc.DebtSvcFacade
}

// newDebtHandler creates a new debtHandler.
func newDebtHandler(ds portssvc.DebtSvcFacade) *debtHandler {
	return &debtHandler{debtService: ds}
}

// registerDebtRoutes registers the debt routes and the customer-scoped debt routes.
func registerDebtRoutes(rg *gin.RouterGroup, debtService portssvc.DebtSvcFacade) {
	h := newDebtHandler(debtService)

	debts := rg.Group("/debts")
	{
		debts.POST("", h.createDebt)
		debts.GET("/overdue", h.listOverdueDebts)
		debts.GET("/statistics", h.debtStatistics)
		debts.GET("/:debtID", h.getDebt)
		debts.DELETE("/:debtID", h.deleteDebt)
		debts.POST("/:debtID/payments", h.payDebt)
	}

	customers := rg.Group("/customers/:customerID/debts")
	{
		customers.GET("", h.listCustomerDebts)
		customers.POST("/auto-pay", h.autoPay)
	}
}

// createDebt godoc
// @Summary Record a customer debt
// @Tags debts
// @Accept  json
// @Produce  json
// @Param   debt body dto.CreateDebtRequest true "Debt details"
// @Success 201 {object} dto.DebtResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /debts [post]
func (h *debtHandler) createDebt(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateDebt", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debt, err := h.debtService.CreateDebt(c.Request.Context(), pharmacyID, req.ToDomain(), middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to create debt")
		return
	}
	logger.Info("Customer debt created", slog.String("debt_id", debt.DebtID), slog.String("customer_id", debt.CustomerID))
	c.JSON(http.StatusCreated, dto.ToDebtResponse(debt))
}

func (h *debtHandler) getDebt(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debt, err := h.debtService.GetDebt(c.Request.Context(), pharmacyID, c.Param("debtID"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve debt")
		return
	}
	c.JSON(http.StatusOK, dto.ToDebtResponse(debt))
}

func (h *debtHandler) deleteDebt(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debtID := c.Param("debtID")
	if err := h.debtService.DeleteDebt(c.Request.Context(), pharmacyID, debtID, middleware.GetActorFromContext(c)); err != nil {
		respondError(c, logger, err, "Failed to delete debt")
		return
	}
	logger.Info("Customer debt deleted", slog.String("debt_id", debtID))
	c.Status(http.StatusNoContent)
}

// payDebt godoc
// @Summary Pay a single debt
// @Description A cash payment is also booked into the money box.
// @Tags debts
// @Accept  json
// @Produce  json
// @Param   debtID path string true "Debt ID"
// @Param   payment body dto.DebtPaymentRequest true "Payment"
// @Success 200 {object} dto.DebtResponse
// @Failure 409 {object} map[string]string "Debt already paid or payment exceeds remaining amount"
// @Security BearerAuth
// @Router /debts/{debtID}/payments [post]
func (h *debtHandler) payDebt(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.DebtPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PayDebt", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debt, err := h.debtService.PayDebt(c.Request.Context(), pharmacyID, c.Param("debtID"), req.Amount,
		domain.PaymentMethod(req.PaymentMethod), req.Notes, middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to pay debt")
		return
	}
	c.JSON(http.StatusOK, dto.ToDebtResponse(debt))
}

func (h *debtHandler) listCustomerDebts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debts, err := h.debtService.ListCustomerDebts(c.Request.Context(), pharmacyID, c.Param("customerID"))
	if err != nil {
		respondError(c, logger, err, "Failed to list customer debts")
		return
	}
	c.JSON(http.StatusOK, dto.ToListDebtResponse(debts))
}

// autoPay spreads one payment over the customer's active debts, oldest first.
func (h *debtHandler) autoPay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.DebtPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AutoPay", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	report, err := h.debtService.AutoPay(c.Request.Context(), pharmacyID, c.Param("customerID"), req.Amount,
		domain.PaymentMethod(req.PaymentMethod), req.Notes, middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to settle customer debts")
		return
	}
	logger.Info("Customer debts settled",
		slog.String("customer_id", report.CustomerID),
		slog.Int("debts_touched", len(report.Allocations)),
		slog.String("allocated", report.TotalAllocated.String()))
	c.JSON(http.StatusOK, dto.ToSettlementResponse(report))
}

func (h *debtHandler) listOverdueDebts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	debts, err := h.debtService.ListOverdueDebts(c.Request.Context(), pharmacyID)
	if err != nil {
		respondError(c, logger, err, "Failed to list overdue debts")
		return
	}
	c.JSON(http.StatusOK, dto.ToListDebtResponse(debts))
}

func (h *debtHandler) debtStatistics(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	stats, err := h.debtService.DebtStatistics(c.Request.Context(), pharmacyID)
	if err != nil {
		respondError(c, logger, err, "Failed to compute debt statistics")
		return
	}
	c.JSON(http.StatusOK, dto.ToDebtStatisticsResponse(stats))
}
