package handler

import (
	"net/http"

	"serviceease/internal/middleware"
	"serviceease/internal/model"
	"serviceease/internal/service"
	"serviceease/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	technician := middleware.RequireRole(model.RoleTechnician, model.RoleAdmin)

	router.GET("/technician/inventory", technician, h.ListMyLedger)
}

// ListMyLedger returns the caller's consumable ledger
// @Summary      List my inventory ledger
// @Description  Returns the technician's assigned stock with per-item quantity and, for opened consumables, the remaining volume or weight.
// @Tags         technician
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.LedgerRowResponse}
// @Router       /technician/inventory [get]
func (h *InventoryHandler) ListMyLedger(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	rows, err := h.inventoryService.ListLedger(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
