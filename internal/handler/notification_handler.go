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

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleTechnician, model.RoleCoordinator, model.RoleInstitutionAdmin)

	notifications := router.Group("/notifications")
	{
		notifications.GET("", anyRole, h.ListMine)
		notifications.PUT("/:id/read", anyRole, h.MarkRead)
	}
}

// ListMine returns the caller's notifications, newest first
// @Summary      List my notifications
// @Tags         notifications
// @Produce      json
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=response.Paginated}
// @Router       /notifications [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.notificationService.ListForUser(c.Request.Context(), userID, p.Page, p.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items: items,
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}))
}

// MarkRead marks one of the caller's notifications as read
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid notification id"))
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid session"))
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"read": true}))
}
