// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"

	"envportal-go/internal/model"

	"github.com/gin-gonic/gin"
)

// ReviewerAuthMiddleware 检查用户是否具备审批能力（REVIEWER 或 ADMIN）。
// 此中间件必须在 AuthMiddleware 之后使用。
func ReviewerAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser, ok := currentUserFrom(c)
		if !ok {
			return
		}

		if !currentUser.CanDecide() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "权限不足，需要审批权限"})
			return
		}

		c.Next()
	}
}

// AdminAuthMiddleware 检查用户是否具有管理员权限（如删除制品）。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser, ok := currentUserFrom(c)
		if !ok {
			return
		}

		if currentUser.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "权限不足，需要管理员权限"})
			return
		}

		c.Next()
	}
}

// currentUserFrom 从 AuthMiddleware 设置的上下文中取出当前用户。
// 取不到说明中间件链配置有误，按服务器内部错误中止。
func currentUserFrom(c *gin.Context) (*model.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return nil, false
	}
	currentUser, ok := user.(*model.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "用户数据类型错误"})
		return nil, false
	}
	return currentUser, true
}
