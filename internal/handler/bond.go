package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
	"fleetops/internal/service"
)

// BondHandler handles HTTP requests for the security bond ledger.
type BondHandler struct {
	bondService *service.BondService
}

// NewBondHandler creates a new BondHandler.
func NewBondHandler(bondService *service.BondService) *BondHandler {
	return &BondHandler{bondService: bondService}
}

// BondBalanceResponse is the HTTP response for a bond balance query.
type BondBalanceResponse struct {
	Balance  string `json:"balance"`
	Required string `json:"required"`
	Percent  int    `json:"percent"`
}

// GetBalance handles GET /v1/drivers/:id/bond
func (h *BondHandler) GetBalance(c *gin.Context) {
	balance, err := h.bondService.GetBondBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BondBalanceResponse{
		Balance:  balance.Balance.String(),
		Required: balance.Required.String(),
		Percent:  balance.Percent,
	})
}

// SufficiencyResponse is the HTTP response for a sufficiency check.
type SufficiencyResponse struct {
	CanStartShift bool   `json:"can_start_shift"`
	Shortfall     string `json:"shortfall"`
}

// CheckSufficiency handles GET /v1/drivers/:id/bond/sufficiency
func (h *BondHandler) CheckSufficiency(c *gin.Context) {
	sufficiency, err := h.bondService.CheckSufficiency(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SufficiencyResponse{
		CanStartShift: sufficiency.CanStartShift,
		Shortfall:     sufficiency.Shortfall.String(),
	})
}

// BurnAlertResponse is the HTTP response for a burn alert check.
type BurnAlertResponse struct {
	IsActive  bool `json:"is_active"`
	Percent   int  `json:"percent"`
	Threshold int  `json:"threshold"`
}

// CheckBurnAlert handles GET /v1/drivers/:id/bond/burn-alert
func (h *BondHandler) CheckBurnAlert(c *gin.Context) {
	alert, err := h.bondService.CheckBurnAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BurnAlertResponse{
		IsActive:  alert.IsActive,
		Percent:   alert.Percent,
		Threshold: alert.Threshold,
	})
}

// PostTransactionRequest is the HTTP request body for posting a deposit
// or deduction.
type PostTransactionRequest struct {
	Amount        string `json:"amount"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Notes         string `json:"notes"`
	Actor         string `json:"actor"`
}

// TransactionResponse is the HTTP response for ledger transactions.
type TransactionResponse struct {
	ID            string `json:"id"`
	DriverID      string `json:"driver_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
	ReferenceType string `json:"reference_type,omitempty"`
	ReferenceID   string `json:"reference_id,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func transactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		DriverID:      tx.DriverID,
		Type:          string(tx.Type),
		Amount:        tx.Amount.String(),
		BalanceAfter:  tx.BalanceAfter.String(),
		ReferenceType: string(tx.ReferenceType),
		ReferenceID:   tx.ReferenceID,
		Description:   tx.Description,
		CreatedBy:     tx.CreatedBy,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

// PostDeposit handles POST /v1/drivers/:id/bond/deposits
func (h *BondHandler) PostDeposit(c *gin.Context) {
	req, amount, ok := h.bindTransaction(c)
	if !ok {
		return
	}

	tx, err := h.bondService.PostDeposit(c.Request.Context(), service.DepositRequest{
		DriverID:      c.Param("id"),
		Amount:        amount,
		ReferenceType: domain.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		Actor:         req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, transactionResponse(tx))
}

// PostDeduction handles POST /v1/drivers/:id/bond/deductions
//
// Manual deductions are discretionary: insufficient balance is an
// error, never a clamp. Forced deductions only originate from the
// incident workflow.
func (h *BondHandler) PostDeduction(c *gin.Context) {
	req, amount, ok := h.bindTransaction(c)
	if !ok {
		return
	}

	tx, err := h.bondService.PostDeduction(c.Request.Context(), service.DeductionRequest{
		DriverID:      c.Param("id"),
		Amount:        amount,
		Mode:          domain.DeductionDiscretionary,
		ReferenceType: domain.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		Actor:         req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, transactionResponse(tx))
}

// ListTransactions handles GET /v1/bond/transactions
func (h *BondHandler) ListTransactions(c *gin.Context) {
	filter := repository.TransactionFilter{
		DriverID: c.Query("driver_id"),
		Type:     domain.TransactionType(c.Query("type")),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = to
	}

	page, pageSize := pageParams(c)

	txs, total, err := h.bondService.ListTransactions(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionResponse(tx))
	}

	respondJSON(c, http.StatusOK, PaginatedResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// AuditResponse is the HTTP response for a ledger audit.
type AuditResponse struct {
	Consistent bool   `json:"consistent"`
	Replayed   string `json:"replayed"`
	Balance    string `json:"balance"`
}

// AuditLedger handles GET /v1/drivers/:id/bond/audit
func (h *BondHandler) AuditLedger(c *gin.Context) {
	consistent, replayed, balance, err := h.bondService.AuditLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AuditResponse{
		Consistent: consistent,
		Replayed:   replayed.String(),
		Balance:    balance.String(),
	})
}

func (h *BondHandler) bindTransaction(c *gin.Context) (PostTransactionRequest, decimal.Decimal, bool) {
	var req PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return req, decimal.Zero, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
		return req, decimal.Zero, false
	}

	return req, amount, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
