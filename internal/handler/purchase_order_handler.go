package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	pos := router.Group("/api/purchase-orders")
	{
		pos.POST("/import", middleware.RequireRole("admin", "manager"), h.ImportPO)
		pos.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListPOs)
		pos.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetPO)
		pos.GET("/number/:po_number", middleware.RequireRole("admin", "manager", "staff"), h.GetPOByNumber)
	}
}

// ImportPO creates a purchase order with its lines
// @Summary      Import purchase order
// @Description  Creates a PO with its lines; the supplier is linked by name when present in the master
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ImportPORequest  true  "Import PO Payload"
// @Success      201  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/import [post]
func (h *PurchaseOrderHandler) ImportPO(c *gin.Context) {
	var req service.ImportPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	po, err := h.poService.Import(c.Request.Context(), req, userIDStr)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// ListPOs returns a paginated purchase order list
// @Summary      List purchase orders
// @Description  Retrieves a paginated list of purchase orders, filterable by status and PO number
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        po      query     string  false  "Filter by PO number (partial match)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) ListPOs(c *gin.Context) {
	params := pagination.Parse(c)

	pos, total, err := h.poService.List(c.Request.Context(), service.POFilter{
		Status:   c.Query("status"),
		PONumber: c.Query("po"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, "purchase_orders", pos, total, params.Page, params.Limit))
}

// GetPO fetches one purchase order with lines and supplier
// @Summary      Get purchase order
// @Description  Fetch a single purchase order by ID, lines and supplier included
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetPO(c *gin.Context) {
	po, err := h.poService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// GetPOByNumber fetches one purchase order by its business number
// @Summary      Get purchase order by number
// @Description  Fetch a single purchase order by its PO number
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        po_number  path      string  true  "PO Number"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/number/{po_number} [get]
func (h *PurchaseOrderHandler) GetPOByNumber(c *gin.Context) {
	po, err := h.poService.GetByNumber(c.Request.Context(), c.Param("po_number"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
