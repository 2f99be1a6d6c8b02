package leave

import (
	"go-hrms/internal/middleware"
	"go-hrms/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service, rdb *redis.Client) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware())
	{
		leaves.POST("/request",
			middleware.RBACAuthorize(rbacService, "leave", "create"),
			middleware.RateLimitByUser(0.2, 2),
			middleware.Idempotency(rdb),
			h.Submit,
		)
		leaves.PUT("/:id/approve", middleware.RBACAuthorize(rbacService, "leave", "approve"), h.Approve)
		leaves.PUT("/:id/reject", middleware.RBACAuthorize(rbacService, "leave", "approve"), h.Reject)
		leaves.GET("/requests/:employee_id", middleware.RBACAuthorize(rbacService, "leave", "read"), h.ListForEmployee)
		leaves.GET("/all-requests", middleware.RBACAuthorize(rbacService, "leave", "read_all"), h.ListAll)
		leaves.GET("/balance/:employee_id", middleware.RBACAuthorize(rbacService, "leave", "read"), h.GetBalance)
	}
}
