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

// moneyBoxHandler handles HTTP requests for the pharmacy's cash drawer.
type moneyBoxHandler struct {
	moneyBoxService portssvc.MoneyBoxSvcFacade
	ledgerService   portssvc.LedgerSvc
}

// newMoneyBoxHandler creates a new moneyBoxHandler.
func newMoneyBoxHandler(mbs portssvc.MoneyBoxSvcFacade, ls portssvc.LedgerSvc) *moneyBoxHandler {
	return &moneyBoxHandler{
		moneyBoxService: mbs,
		ledgerService:   ls,
	}
}

// registerMoneyBoxRoutes registers routes related to the money box.
func registerMoneyBoxRoutes(rg *gin.RouterGroup, moneyBoxService portssvc.MoneyBoxSvcFacade, ledgerService portssvc.LedgerSvc) {
	h := newMoneyBoxHandler(moneyBoxService, ledgerService)

	box := rg.Group("/money-box")
	{
		box.POST("", h.createMoneyBox)
		box.GET("", h.getMoneyBox)
		box.PATCH("/status", h.updateStatus)
		box.POST("/transactions", h.addManualTransaction)
		box.GET("/transactions", h.listTransactions)
		box.POST("/operations", h.recordOperation)
		box.POST("/reconcile", h.reconcile)
		box.GET("/summary", h.periodSummary)
		box.GET("/analytics/failures", h.failedOperations)
		box.GET("/analytics/conversions", h.conversionAnalytics)
		box.GET("/audit/:refType/:refID", h.auditTrail)
	}
}

// createMoneyBox godoc
// @Summary Create the pharmacy's money box
// @Tags money box
// @Accept  json
// @Produce  json
// @Param   box body dto.CreateMoneyBoxRequest true "Opening balance"
// @Success 201 {object} dto.MoneyBoxResponse
// @Failure 409 {object} map[string]string "Money box already exists"
// @Security BearerAuth
// @Router /money-box [post]
func (h *moneyBoxHandler) createMoneyBox(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateMoneyBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateMoneyBox", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	box, err := h.moneyBoxService.CreateMoneyBox(c.Request.Context(), pharmacyID, req.InitialBalance, req.Currency, middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to create money box")
		return
	}

	logger.Info("Money box created", slog.String("money_box_id", box.MoneyBoxID))
	c.JSON(http.StatusCreated, dto.ToMoneyBoxResponse(box))
}

// getMoneyBox returns the box with its balance in every display currency.
func (h *moneyBoxHandler) getMoneyBox(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	view, err := h.moneyBoxService.GetMoneyBox(c.Request.Context(), pharmacyID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve money box")
		return
	}
	c.JSON(http.StatusOK, dto.ToMoneyBoxViewResponse(view))
}

func (h *moneyBoxHandler) updateStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateMoneyBoxStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateMoneyBoxStatus", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	box, err := h.moneyBoxService.UpdateStatus(c.Request.Context(), pharmacyID, domain.MoneyBoxStatus(req.Status), middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to update money box status")
		return
	}
	c.JSON(http.StatusOK, dto.ToMoneyBoxResponse(box))
}

// addManualTransaction godoc
// @Summary Record a manual cash deposit or withdrawal
// @Description A positive amount is a deposit, a negative one a withdrawal.
// @Tags money box
// @Accept  json
// @Produce  json
// @Param   txn body dto.ManualTransactionRequest true "Movement"
// @Success 201 {object} dto.TransactionResponse
// @Failure 409 {object} map[string]string "Money box is closed"
// @Security BearerAuth
// @Router /money-box/transactions [post]
func (h *moneyBoxHandler) addManualTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ManualTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ManualTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	txn, err := h.moneyBoxService.AddManualTransaction(c.Request.Context(), pharmacyID, req.Amount, req.Currency, req.Description, middleware.GetActorFromContext(c))
	if err != nil {
		respondLedgerError(c, logger, txn, err, "Failed to record manual transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// recordOperation books a typed business movement (sale, purchase, expense...) against the box.
func (h *moneyBoxHandler) recordOperation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordOperation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	txn, err := h.ledgerService.RecordForPharmacy(c.Request.Context(), pharmacyID, domain.RecordRequest{
		TransactionType:  domain.TransactionType(req.TransactionType),
		OriginalAmount:   req.Amount,
		OriginalCurrency: req.Currency,
		Description:      req.Description,
		ReferenceID:      req.ReferenceID,
		ReferenceType:    req.ReferenceType,
		Actor:            middleware.GetActorFromContext(c),
		Metadata:         req.Metadata,
	})
	if err != nil {
		respondLedgerError(c, logger, txn, err, "Failed to record operation")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// respondLedgerError is respondError that also returns the FAILED compensating row when one was written.
func respondLedgerError(c *gin.Context, logger *slog.Logger, failed *domain.Transaction, err error, fallbackMsg string) {
	if failed == nil {
		respondError(c, logger, err, fallbackMsg)
		return
	}
	logger.Error(fallbackMsg, slog.String("error", err.Error()), slog.String("failed_transaction_id", failed.TransactionID))
	c.JSON(statusForError(err), gin.H{
		"error":       fallbackMsg,
		"transaction": dto.ToTransactionResponse(failed),
	})
}

func (h *moneyBoxHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(params.Type),
		Status: domain.OperationStatus(params.Status),
		From:   params.From,
		To:     params.To,
	}
	txns, next, err := h.moneyBoxService.ListTransactions(c.Request.Context(), pharmacyID, filter, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, logger, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.ToListTransactionResponse(txns),
		NextToken:    next,
	})
}

// reconcile godoc
// @Summary Reconcile the box against a physical cash count
// @Tags money box
// @Accept  json
// @Produce  json
// @Param   count body dto.ReconcileRequest true "Cash count"
// @Success 200 {object} dto.ReconciliationResponse
// @Security BearerAuth
// @Router /money-box/reconcile [post]
func (h *moneyBoxHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Reconcile", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	rec, err := h.moneyBoxService.Reconcile(c.Request.Context(), pharmacyID, req.ActualCount, req.Notes, middleware.GetActorFromContext(c))
	if err != nil {
		respondError(c, logger, err, "Failed to reconcile money box")
		return
	}
	logger.Info("Money box reconciled", slog.String("difference", rec.Difference.String()))
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

func (h *moneyBoxHandler) periodSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.PeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for PeriodSummary", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	summary, err := h.moneyBoxService.PeriodSummary(c.Request.Context(), pharmacyID, params.From, params.To)
	if err != nil {
		respondError(c, logger, err, "Failed to build period summary")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodSummaryResponse(summary))
}

// failedOperations godoc
// @Summary Analyse the failed ledger operations of a period
// @Tags money box
// @Produce  json
// @Param   from query string true "Start of the period (RFC 3339)"
// @Param   to   query string true "End of the period, exclusive (RFC 3339)"
// @Success 200 {object} dto.FailedOperationsResponse
// @Failure 400 {object} map[string]string "Invalid period"
// @Security BearerAuth
// @Router /money-box/analytics/failures [get]
func (h *moneyBoxHandler) failedOperations(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.PeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for FailedOperations", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	analysis, err := h.moneyBoxService.FailedOperations(c.Request.Context(), pharmacyID, params.From, params.To)
	if err != nil {
		respondError(c, logger, err, "Failed to analyse failed operations")
		return
	}
	c.JSON(http.StatusOK, dto.ToFailedOperationsResponse(analysis))
}

func (h *moneyBoxHandler) conversionAnalytics(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.PeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ConversionAnalytics", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	analytics, err := h.moneyBoxService.ConversionAnalytics(c.Request.Context(), pharmacyID, params.From, params.To)
	if err != nil {
		respondError(c, logger, err, "Failed to build conversion analytics")
		return
	}
	c.JSON(http.StatusOK, dto.ToConversionAnalyticsResponse(analytics))
}

// auditTrail lists every ledger row recorded for one business reference.
func (h *moneyBoxHandler) auditTrail(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pharmacyID, ok := pharmacyFromContext(c, logger)
	if !ok {
		return
	}

	txns, err := h.moneyBoxService.AuditTrail(c.Request.Context(), pharmacyID, c.Param("refType"), c.Param("refID"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve audit trail")
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionResponse(txns))
}
