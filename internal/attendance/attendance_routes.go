package attendance

import (
	"go-hrms/internal/middleware"
	"go-hrms/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service, rdb *redis.Client) {
	attendances := r.Group("/attendances")
	attendances.Use(middleware.AuthMiddleware())
	{
		attendances.POST("/check-in",
			middleware.RBACAuthorize(rbacService, "attendance", "create"),
			middleware.RateLimitByUser(0.5, 3),
			middleware.Idempotency(rdb),
			h.CheckIn,
		)
		attendances.PUT("/check-out",
			middleware.RBACAuthorize(rbacService, "attendance", "create"),
			middleware.RateLimitByUser(0.5, 3),
			h.CheckOut,
		)
		attendances.GET("/records", middleware.RBACAuthorize(rbacService, "attendance", "read"), h.ListRecords)
		attendances.GET("/all-records", middleware.RBACAuthorize(rbacService, "attendance", "read_all"), h.ListAll)
		attendances.GET("/summary", middleware.RBACAuthorize(rbacService, "attendance", "read_all"), h.Summary)
	}
}
