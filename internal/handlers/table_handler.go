package handlers

import (
	"net/http"

	"dinetrack/internal/services"

	"github.com/gin-gonic/gin"
)

type TableHandler struct {
	tableService services.TableService
}

func NewTableHandler(tableService services.TableService) *TableHandler {
	return &TableHandler{tableService: tableService}
}

// GET /tables
func (h *TableHandler) ListTables(c *gin.Context) {
	tables, err := h.tableService.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// GET /tables/:id
func (h *TableHandler) GetTable(c *gin.Context) {
	table, err := h.tableService.GetTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// POST /tables
func (h *TableHandler) CreateTable(c *gin.Context) {
	var req services.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	table, err := h.tableService.CreateTable(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

// PUT /tables/:id/status?status=<s>
func (h *TableHandler) SetTableStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status query parameter is required"})
		return
	}

	table, err := h.tableService.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}
