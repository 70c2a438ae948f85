package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type GRNHandler struct {
	grnService service.GRNService
}

func NewGRNHandler(grnService service.GRNService) *GRNHandler {
	return &GRNHandler{grnService: grnService}
}

func (h *GRNHandler) RegisterRoutes(router *gin.RouterGroup) {
	grns := router.Group("/api/grns")
	{
		grns.POST("", middleware.RequireRole("admin", "manager", "staff"), h.RecordGRN)
		grns.GET("/:po_number", middleware.RequireRole("admin", "manager", "staff"), h.ListByPO)
	}
}

// RecordGRN stores a goods-receipt entry against a PO
// @Summary      Record GRN
// @Description  Records a goods-receipt note against an existing purchase order
// @Tags         grns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.GRNRequest  true  "GRN Payload"
// @Success      201  {object}  response.Response{data=model.GRN}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/grns [post]
func (h *GRNHandler) RecordGRN(c *gin.Context) {
	var req service.GRNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	grn, err := h.grnService.Record(c.Request.Context(), req, userIDStr)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, grn))
}

// ListByPO returns all receipts recorded against a PO with the aggregate
// @Summary      List GRNs for a PO
// @Description  Retrieves all goods-receipt notes for a PO plus the received-quantity aggregate
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        po_number  path      string  true  "PO Number"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/grns/{po_number} [get]
func (h *GRNHandler) ListByPO(c *gin.Context) {
	poNumber := c.Param("po_number")

	grns, err := h.grnService.ListByPO(c.Request.Context(), poNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	total, err := h.grnService.ReceivedQty(c.Request.Context(), poNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"grns":         grns,
		"received_qty": total,
	}))
}
