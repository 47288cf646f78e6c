// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"envportal-go/internal/catalog"
	"envportal-go/internal/config"
	"envportal-go/internal/model"
	"envportal-go/internal/parser"
	"envportal-go/internal/service"
	"envportal-go/pkg/log"
	"envportal-go/pkg/storage"
	"envportal-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// ArtifactHandler 负责处理所有与上传制品相关的 API 请求：
// 上传暂存、待审列表、预览、审批/驳回以及管理员删除。
type ArtifactHandler struct {
	stagingService  service.StagingService
	approvalService service.ApprovalService
	previewService  service.PreviewService
	minioCfg        config.MinIOConfig
	maxUploadBytes  int64
}

// NewArtifactHandler 创建一个新的 ArtifactHandler 实例。
func NewArtifactHandler(
	stagingService service.StagingService,
	approvalService service.ApprovalService,
	previewService service.PreviewService,
	minioCfg config.MinIOConfig,
	maxUploadSizeMB int64,
) *ArtifactHandler {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = 32
	}
	return &ArtifactHandler{
		stagingService:  stagingService,
		approvalService: approvalService,
		previewService:  previewService,
		minioCfg:        minioCfg,
		maxUploadBytes:  maxUploadSizeMB << 20,
	}
}

// Stage 处理报表上传暂存请求。
// 表单字段：file（报表文件）、categoryKind、categoryId、periodId（监测/改善必填）。
func (h *ArtifactHandler) Stage(c *gin.Context) {
	categoryKind := c.PostForm("categoryKind")
	categoryID := c.PostForm("categoryId")
	if categoryKind == "" || categoryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要的参数：categoryKind 和 categoryId"})
		return
	}

	var periodID uint
	if raw := c.PostForm("periodId"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的期别标识"})
			return
		}
		periodID = uint(parsed)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未能获取上传的文件"})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超出大小限制"})
		return
	}

	fileKind, err := parser.KindFromFilename(header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		log.Error("Stage: 读取上传文件失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超出大小限制"})
		return
	}

	table, err := parser.Parse(bytes.NewReader(data), fileKind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件解析失败: " + err.Error()})
		return
	}

	claimsValue, _ := c.Get("claims")
	claims := claimsValue.(*token.CustomClaims)
	meta := service.UploadMeta{
		FileName:   header.Filename,
		StoredName: fmt.Sprintf("%d_%d_%s", claims.UserID, time.Now().UnixNano(), header.Filename),
		MediaType:  header.Header.Get("Content-Type"),
		FileSize:   header.Size,
		UploaderID: claims.UserID,
		PeriodID:   periodID,
	}

	artifact, err := h.stagingService.Stage(c.Request.Context(), meta, categoryKind, categoryID, table)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrUnknownCategory):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrEmptyPayload),
			errors.Is(err, service.ErrUnresolvedForeignKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error("Stage: 暂存失败", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}

	// 原始文件异步归档到 MinIO，失败只记日志，不影响暂存结果
	go func() {
		archiveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := storage.ArchiveArtifact(archiveCtx, h.minioCfg.BucketName, artifact.StoredName, data, meta.MediaType); err != nil {
			log.Warnf("Stage: 归档原始文件失败, 制品ID: %d, err: %v", artifact.ID, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "上传已暂存，等待审批",
		"data": gin.H{
			"artifactId":  artifact.ID,
			"status":      artifact.Status,
			"targetTable": artifact.TargetTable,
			"rowCount":    artifact.RowCount,
		},
	})
}

// ListPending 处理待审批制品列表请求，可用 kind 查询参数按类别种类过滤。
func (h *ArtifactHandler) ListPending(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && kind != model.KindMonitoring && kind != model.KindEnhancement && kind != model.KindReference {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的类别种类"})
		return
	}

	artifacts, err := h.approvalService.ListPending(kind)
	if err != nil {
		log.Error("ListPending: 查询待审批制品失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    artifacts,
	})
}

// Preview 处理暂存数据分页预览请求。查询参数：page（从 1 开始）、size。
func (h *ArtifactHandler) Preview(c *gin.Context) {
	artifactID, ok := pathArtifactID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	pageData, err := h.previewService.Preview(artifactID, page, size)
	if err != nil {
		if errors.Is(err, service.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "制品不存在"})
			return
		}
		log.Error("Preview: 预览失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    pageData,
	})
}

// Approve 处理审批通过请求：把暂存数据插入目标表并迁移制品状态。
func (h *ArtifactHandler) Approve(c *gin.Context) {
	artifactID, ok := pathArtifactID(c)
	if !ok {
		return
	}

	claimsValue, _ := c.Get("claims")
	claims := claimsValue.(*token.CustomClaims)
	result, err := h.approvalService.Approve(c.Request.Context(), artifactID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrArtifactNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "制品不存在"})
		case errors.Is(err, service.ErrAlreadyDecided):
			c.JSON(http.StatusConflict, gin.H{"error": "制品已被决定，不可重复审批"})
		case errors.Is(err, service.ErrUnresolvedSchema):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInsertFailed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			log.Error("Approve: 审批失败", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "审批通过，数据已入库",
		"data": gin.H{
			"artifactId":   artifactID,
			"insertedRows": result.Inserted,
			"skippedRows":  result.Skipped,
		},
	})
}

// RejectRequest 定义了驳回 API 的请求体结构。
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject 处理驳回请求：制品进入 REJECTED，目标表不落任何行。
func (h *ArtifactHandler) Reject(c *gin.Context) {
	artifactID, ok := pathArtifactID(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	claimsValue, _ := c.Get("claims")
	claims := claimsValue.(*token.CustomClaims)
	if err := h.approvalService.Reject(c.Request.Context(), artifactID, claims.UserID, req.Reason); err != nil {
		switch {
		case errors.Is(err, service.ErrArtifactNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "制品不存在"})
		case errors.Is(err, service.ErrAlreadyDecided):
			c.JSON(http.StatusConflict, gin.H{"error": "制品已被决定，不可重复驳回"})
		default:
			log.Error("Reject: 驳回失败", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "已驳回",
	})
}

// Delete 处理管理员删除制品的请求。删除只清理制品记录本身，
// 已审批入库的目标表数据不受影响。
func (h *ArtifactHandler) Delete(c *gin.Context) {
	artifactID, ok := pathArtifactID(c)
	if !ok {
		return
	}

	if err := h.approvalService.Delete(artifactID); err != nil {
		if errors.Is(err, service.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "制品不存在"})
			return
		}
		log.Error("Delete: 删除制品失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "删除成功",
	})
}

// pathArtifactID 解析路径参数中的制品 ID，失败时直接写响应。
func pathArtifactID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的制品标识"})
		return 0, false
	}
	return uint(parsed), true
}
