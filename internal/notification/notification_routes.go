package notification

import (
	"go-hrms/internal/middleware"
	"go-hrms/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("/user", middleware.RBACAuthorize(rbacService, "notification", "read"), h.ListForUser)
		notifications.GET("/unread-count",
			middleware.RBACAuthorize(rbacService, "notification", "read"),
			middleware.RateLimitByUser(5, 20),
			h.UnreadCount,
		)
		notifications.PUT("/:id/mark-read", middleware.RBACAuthorize(rbacService, "notification", "update"), h.MarkRead)
		notifications.PUT("/mark-all-read", middleware.RBACAuthorize(rbacService, "notification", "update"), h.MarkAllRead)
	}
}
