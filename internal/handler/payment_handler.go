package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	{
		payments.POST("/approve", middleware.RequireRole("admin", "manager"), h.Approve)
		payments.POST("/bulk-approve", middleware.RequireRole("admin", "manager"), h.BulkApprove)
		payments.POST("/bulk-reject", middleware.RequireRole("admin", "manager"), h.BulkReject)
		payments.GET("/ready", middleware.RequireRole("admin", "manager", "staff"), h.ListReady)
		payments.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetApproval)
		payments.POST("/:id/transactions", middleware.RequireRole("admin", "manager"), h.RecordPayment)
		payments.GET("/:id/transactions", middleware.RequireRole("admin", "manager", "staff"), h.ListTransactions)
	}
}

// Approve snapshots payable amount and banking details for an invoice
// @Summary      Approve invoice for payment
// @Description  Snapshots the payable amount and banking details and moves the invoice to ready_for_payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ApproveRequest  true  "Approve Payload"
// @Success      200  {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payments/approve [post]
func (h *PaymentHandler) Approve(c *gin.Context) {
	var req service.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	approval, err := h.paymentService.Approve(c.Request.Context(), req, userIDStr)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approval))
}

// BulkApprove approves a batch of invoices with per-item outcomes
// @Summary      Bulk approve invoices
// @Description  Approves each invoice independently and reports per-item results; no cross-item rollback
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkApproveRequest  true  "Bulk Approve Payload"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/payments/bulk-approve [post]
func (h *PaymentHandler) BulkApprove(c *gin.Context) {
	var req service.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	results := h.paymentService.BulkApprove(c.Request.Context(), req, userIDStr)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bulkSummary(results)))
}

// BulkReject rejects a batch of invoices with per-item outcomes
// @Summary      Bulk reject invoices
// @Description  Rejects each invoice independently and reports per-item results; no cross-item rollback
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkRejectRequest  true  "Bulk Reject Payload"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/payments/bulk-reject [post]
func (h *PaymentHandler) BulkReject(c *gin.Context) {
	var req service.BulkRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	results := h.paymentService.BulkReject(c.Request.Context(), req, userIDStr)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bulkSummary(results)))
}

func bulkSummary(results []service.BulkResult) map[string]interface{} {
	succeeded := 0
	for _, r := range results {
		if r.OK {
			succeeded++
		}
	}
	return map[string]interface{}{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}
}

// ListReady returns approvals awaiting payment
// @Summary      List ready approvals
// @Description  Retrieves a paginated list of approvals in ready_for_payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/payments/ready [get]
func (h *PaymentHandler) ListReady(c *gin.Context) {
	params := pagination.Parse(c)

	approvals, total, err := h.paymentService.ListReady(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, "approvals", approvals, total, params.Page, params.Limit))
}

// GetApproval fetches one approval with its derived balances
// @Summary      Get approval
// @Description  Fetch a single payment approval by ID with transactions and balances
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Approval ID"
// @Success      200  {object}  response.Response{data=service.ApprovalResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id} [get]
func (h *PaymentHandler) GetApproval(c *gin.Context) {
	approval, err := h.paymentService.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, approval))
}

// RecordPayment appends a payment transaction to the ledger
// @Summary      Record payment
// @Description  Appends a payment transaction and recomputes the settlement status atomically
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Approval ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200  {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payments/{id}/transactions [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	approval, err := h.paymentService.RecordPayment(c.Request.Context(), c.Param("id"), req, userIDStr)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approval))
}

// ListTransactions returns the payment ledger for an approval
// @Summary      List payment transactions
// @Description  Retrieves the append-only list of payment transactions for an approval
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Approval ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/payments/{id}/transactions [get]
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	txs, err := h.paymentService.ListTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": txs,
	}))
}
