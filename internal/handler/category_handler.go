// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"envportal-go/internal/catalog"
	"envportal-go/internal/model"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 负责处理类别目录查询的 API 请求。
type CategoryHandler struct {
	catalog *catalog.Catalog
}

// NewCategoryHandler 创建一个新的 CategoryHandler 实例。
func NewCategoryHandler(cat *catalog.Catalog) *CategoryHandler {
	return &CategoryHandler{catalog: cat}
}

// CategoryResponse 定义了类别列表 API 的响应条目结构。
type CategoryResponse struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	TargetTable string `json:"targetTable"`
}

// List 返回已登记的类别清单，可用 kind 查询参数过滤。
// 前端上传页用它渲染类别下拉框。
func (h *CategoryHandler) List(c *gin.Context) {
	kind := c.Query("kind")

	var kinds []string
	switch kind {
	case "":
		kinds = []string{model.KindMonitoring, model.KindEnhancement, model.KindReference}
	case model.KindMonitoring, model.KindEnhancement, model.KindReference:
		kinds = []string{kind}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的类别种类"})
		return
	}

	items := make([]CategoryResponse, 0)
	for _, k := range kinds {
		for _, schema := range h.catalog.List(k) {
			items = append(items, CategoryResponse{
				Kind:        schema.Kind,
				ID:          schema.ID,
				TargetTable: schema.TargetTable,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    items,
	})
}
