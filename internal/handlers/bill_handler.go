package handlers

import (
	"net/http"
	"strconv"

	"dinetrack/internal/services"

	"github.com/gin-gonic/gin"
)

type BillHandler struct {
	billService services.BillService
}

func NewBillHandler(billService services.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// POST /bills
func (h *BillHandler) CreateBill(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	bill, err := h.billService.Generate(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

// GET /bills?table_id=<t>&status=<s>&payment_status=<p>
func (h *BillHandler) ListBills(c *gin.Context) {
	bills, err := h.billService.ListBills(c.Query("table_id"), c.Query("status"), c.Query("payment_status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// GET /bills/:id?auto_refresh=<bool>
func (h *BillHandler) GetBill(c *gin.Context) {
	autoRefresh, _ := strconv.ParseBool(c.Query("auto_refresh"))

	bill, err := h.billService.GetBill(c.Request.Context(), c.Param("id"), autoRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// POST /bills/:id/refresh
func (h *BillHandler) RefreshBill(c *gin.Context) {
	result, err := h.billService.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /bills/:id/verify
func (h *BillHandler) VerifyBill(c *gin.Context) {
	result, err := h.billService.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PUT /bills/:id/status
func (h *BillHandler) SetBillStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	bill, err := h.billService.UpdateBillStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// PUT /bills/:id/payment-status?payment_status=<s>
func (h *BillHandler) SetPaymentStatus(c *gin.Context) {
	paymentStatus := c.Query("payment_status")
	if paymentStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_status query parameter is required"})
		return
	}

	bill, err := h.billService.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), paymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}
