package handler

import (
	"net/http"

	"serviceease/internal/middleware"
	"serviceease/internal/model"
	"serviceease/internal/service"
	"serviceease/pkg/pagination"
	"serviceease/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
	approvalService  service.ApprovalService
}

func NewWorkOrderHandler(workOrderService service.WorkOrderService, approvalService service.ApprovalService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderService: workOrderService, approvalService: approvalService}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	technician := middleware.RequireRole(model.RoleTechnician, model.RoleAdmin)

	orders := router.Group("/technician/service-requests")
	{
		orders.GET("", technician, h.ListMine)
		orders.GET("/:id/history", technician, h.History)
		orders.POST("/:id/start", technician, h.Start)
		orders.POST("/:id/hold", technician, h.Hold)
		orders.POST("/:id/complete", technician, h.SubmitCompletion)
		orders.POST("/:id/issues", technician, h.ReportIssue)
	}
}

type holdRequest struct {
	Reason string `json:"reason"`
}

type issueRequest struct {
	IssueType   string `json:"issue_type" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// ListMine returns the caller's work orders, optionally filtered by status
// @Summary      List my service requests
// @Tags         technician
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response{data=response.Paginated}
// @Router       /technician/service-requests [get]
func (h *WorkOrderHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}
	p := pagination.Parse(c)

	orders, total, err := h.workOrderService.ListForTechnician(c.Request.Context(), userID, c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items: orders,
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}))
}

// History returns the status audit trail of one work order
// @Summary      Work order history
// @Tags         technician
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /technician/service-requests/{id}/history [get]
func (h *WorkOrderHandler) History(c *gin.Context) {
	workOrderID, userID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	entries, err := h.workOrderService.History(c.Request.Context(), workOrderID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// Start begins work on an assigned service request
// @Summary      Start a service request
// @Tags         technician
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /technician/service-requests/{id}/start [post]
func (h *WorkOrderHandler) Start(c *gin.Context) {
	workOrderID, userID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	wo, err := h.workOrderService.Start(c.Request.Context(), workOrderID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Hold parks a service request the technician cannot progress
// @Summary      Put a service request on hold
// @Tags         technician
// @Accept       json
// @Produce      json
// @Param        id       path      string       true  "Service request ID"
// @Param        payload  body      holdRequest  true  "Hold reason"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /technician/service-requests/{id}/hold [post]
func (h *WorkOrderHandler) Hold(c *gin.Context) {
	workOrderID, userID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	var req holdRequest
	_ = c.ShouldBindJSON(&req)

	wo, err := h.workOrderService.Hold(c.Request.Context(), workOrderID, userID, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// SubmitCompletion files the technician's completion report for approval
// @Summary      Submit completion for approval
// @Description  Moves the work order to pending_approval and records the declared consumable usage. The ledger is not touched until an approver accepts.
// @Tags         technician
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Service request ID"
// @Param        payload  body      service.SubmitCompletionRequest  true  "Completion report and item usage"
// @Success      201      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /technician/service-requests/{id}/complete [post]
func (h *WorkOrderHandler) SubmitCompletion(c *gin.Context) {
	workOrderID, userID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	var req service.SubmitCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	approval, err := h.approvalService.SubmitCompletion(c.Request.Context(), workOrderID, userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, approval))
}

// ReportIssue records a problem encountered on site without changing status
// @Summary      Report an issue on a service request
// @Tags         technician
// @Accept       json
// @Produce      json
// @Param        id       path      string        true  "Service request ID"
// @Param        payload  body      issueRequest  true  "Issue report"
// @Success      201      {object}  response.Response
// @Router       /technician/service-requests/{id}/issues [post]
func (h *WorkOrderHandler) ReportIssue(c *gin.Context) {
	workOrderID, userID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.workOrderService.ReportIssue(c.Request.Context(), workOrderID, userID, req.IssueType, req.Description); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"reported": true}))
}

func (h *WorkOrderHandler) parseIDs(c *gin.Context) (workOrderID, userID uuid.UUID, ok bool) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid service request id"))
		return uuid.Nil, uuid.Nil, false
	}
	userID, valid := middleware.CurrentUserID(c)
	if !valid {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return uuid.Nil, uuid.Nil, false
	}
	return workOrderID, userID, true
}
