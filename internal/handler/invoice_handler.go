package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("/upload", middleware.RequireRole("admin", "manager", "staff"), h.UploadInvoice)
		invoices.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListInvoices)
		invoices.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetInvoice)
		invoices.PUT("/:id", middleware.RequireRole("admin", "manager", "staff"), h.UpdateInvoice)
		invoices.POST("/:id/validate", middleware.RequireRole("admin", "manager", "staff"), h.ValidateInvoice)
		invoices.POST("/:id/lines/:seq/weight", middleware.RequireRole("admin", "manager", "staff"), h.AttachWeight)
		invoices.POST("/:id/debit-note", middleware.RequireRole("admin", "manager"), h.AttachDebitNote)
		invoices.PUT("/:id/reject", middleware.RequireRole("admin", "manager"), h.RejectInvoice)
	}
}

// UploadInvoice ingests a scanned invoice PDF through the extraction service
// @Summary      Upload invoice
// @Description  Runs OCR extraction on the uploaded PDF and persists the invoice in waiting_for_validation
// @Tags         invoices
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        pdf              formData  file    true   "Invoice PDF"
// @Param        scanning_number  formData  string  true   "Unique scanning number"
// @Param        pdf_url          formData  string  false  "Stored document URL"
// @Success      201  {object}  response.Response{data=model.Invoice}
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/invoices/upload [post]
func (h *InvoiceHandler) UploadInvoice(c *gin.Context) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing 'pdf' file: "+err.Error()))
		return
	}
	scanningNumber := c.PostForm("scanning_number")
	if scanningNumber == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing 'scanning_number'"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read uploaded file: "+err.Error()))
		return
	}
	defer file.Close()

	invoice, err := h.invoiceService.Capture(c.Request.Context(), scanningNumber, c.PostForm("pdf_url"), fileHeader.Filename, file)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices with optional filters
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices, filterable by status, supplier, and PO number
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status    query     string  false  "Filter by invoice status"
// @Param        supplier  query     string  false  "Filter by supplier name"
// @Param        po        query     string  false  "Filter by PO number"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:       c.Query("status"),
		SupplierName: c.Query("supplier"),
		PONumber:     c.Query("po"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, "invoices", invoices, total, params.Page, params.Limit))
}

// GetInvoice fetches a single invoice with its lines
// @Summary      Get invoice
// @Description  Fetch a single invoice by ID, lines included
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice edits header fields and lines; validated invoices reset to re-validation
// @Summary      Update invoice
// @Description  Edits invoice header fields and lines. Editing an already-validated invoice resets it to waiting_for_re_validation.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Update Invoice Payload"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ValidateInvoice runs the reconciliation engine and routes the invoice
// @Summary      Validate invoice
// @Description  Reconciles the invoice against PO, GRN, and supplier master data and applies the resulting status transition
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.ValidateOutcome}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/invoices/{id}/validate [post]
func (h *InvoiceHandler) ValidateInvoice(c *gin.Context) {
	outcome, err := h.invoiceService.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}

// AttachWeight extracts a weight slip and writes the weight onto an invoice line
// @Summary      Attach weight slip
// @Description  Runs weight extraction on the uploaded PDF and records the weight on the given line
// @Tags         invoices
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Param        seq  path      int     true  "Line sequence number (1-based)"
// @Param        pdf  formData  file    true  "Weight slip PDF"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/invoices/{id}/lines/{seq}/weight [post]
func (h *InvoiceHandler) AttachWeight(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line sequence number"))
		return
	}

	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing 'pdf' file: "+err.Error()))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read uploaded file: "+err.Error()))
		return
	}
	defer file.Close()

	invoice, err := h.invoiceService.AttachWeight(c.Request.Context(), c.Param("id"), seq, fileHeader.Filename, file)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// AttachDebitNote records the operator-entered payable amount and document
// @Summary      Attach debit note
// @Description  Stores the debit note value and document URL on a debit_note_approval invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Invoice ID"
// @Param        payload  body      service.DebitNoteRequest  true  "Debit Note Payload"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/debit-note [post]
func (h *InvoiceHandler) AttachDebitNote(c *gin.Context) {
	var req service.DebitNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.AttachDebitNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RejectInvoice rejects an invoice from any non-terminal status
// @Summary      Reject invoice
// @Description  Moves the invoice to rejected and stores the reason; any linked approval is rejected with it
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.RejectInvoiceRequest  true  "Reject Payload"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/reject [put]
func (h *InvoiceHandler) RejectInvoice(c *gin.Context) {
	var req service.RejectInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	invoice, err := h.invoiceService.Reject(c.Request.Context(), c.Param("id"), userIDStr, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
