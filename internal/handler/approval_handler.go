package handler

import (
	"net/http"

	"serviceease/internal/middleware"
	"serviceease/internal/model"
	"serviceease/internal/service"
	"serviceease/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviewers := middleware.RequireRole(model.RoleAdmin, model.RoleCoordinator, model.RoleInstitutionAdmin)

	approvals := router.Group("/approvals")
	{
		approvals.GET("/pending", reviewers, h.ListPending)
		approvals.GET("/:id", reviewers, h.GetDetails)
		approvals.PUT("/:id/approve", reviewers, h.Approve)
		approvals.PUT("/:id/reject", reviewers, h.Reject)
	}
}

type reviewRequest struct {
	Note string `json:"note"`
}

// ListPending returns approval requests awaiting the caller's review
// @Summary      List pending approvals
// @Description  Returns completion submissions awaiting review, scoped to work orders the caller administers.
// @Tags         approvals
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	rows, err := h.approvalService.ListPending(c.Request.Context(), userID, middleware.CurrentUserRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// GetDetails returns one approval with its work order and declared item usage
// @Summary      Approval details
// @Tags         approvals
// @Produce      json
// @Param        id   path      string  true  "Approval ID"
// @Success      200  {object}  response.Response{data=service.ApprovalDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /approvals/{id} [get]
func (h *ApprovalHandler) GetDetails(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid approval id"))
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	detail, err := h.approvalService.Details(c.Request.Context(), approvalID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// Approve accepts a pending completion submission
// @Summary      Approve a completion submission
// @Description  Marks the submission approved, completes the work order and settles the technician's inventory ledger.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id       path      string         true   "Approval ID"
// @Param        payload  body      reviewRequest  false  "Optional approver note"
// @Success      200      {object}  response.Response{data=service.ReviewResult}
// @Failure      409      {object}  response.Response
// @Router       /approvals/{id}/approve [put]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid approval id"))
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body is fine — the note is optional on approval
		req.Note = ""
	}

	result, err := h.approvalService.Approve(c.Request.Context(), approvalID, userID, req.Note)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject sends a pending completion submission back for revision
// @Summary      Reject a completion submission
// @Description  Marks the submission rejected and returns the work order to in_progress. A reason is required; the ledger is untouched.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Approval ID"
// @Param        payload  body      reviewRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.ReviewResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /approvals/{id}/reject [put]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid approval id"))
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.approvalService.Reject(c.Request.Context(), approvalID, userID, req.Note)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
