// Package service 包含了应用的业务逻辑层。
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"envportal-go/internal/model"
	"envportal-go/internal/parser"
	"envportal-go/internal/repository"

	"gorm.io/gorm"
)

// ColumnDescriptor 描述预览的一列：外部字段名与映射到的目标列。
type ColumnDescriptor struct {
	Field  string `json:"field"`
	Column string `json:"column"`
}

// PreviewPage 是暂存行的一页投影。
type PreviewPage struct {
	Columns       []ColumnDescriptor `json:"columns"`
	Content       []parser.Record    `json:"content"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
	Size          int                `json:"size"`
	Number        int                `json:"number"`
}

// PreviewService 接口定义了暂存载荷的只读分页投影。
// 只读制品里的暂存载荷，绝不触碰目标表。
type PreviewService interface {
	Preview(artifactID uint, page, size int) (*PreviewPage, error)
}

// previewService 是 PreviewService 接口的实现。
type previewService struct {
	artifactRepo repository.ArtifactRepository
}

// NewPreviewService 创建一个新的 PreviewService 实例。
func NewPreviewService(artifactRepo repository.ArtifactRepository) PreviewService {
	return &previewService{artifactRepo: artifactRepo}
}

// Preview 分页投影暂存行，行序保持上传时的原始顺序。
// page 从 1 开始；size 非法时使用默认值。
func (s *previewService) Preview(artifactID uint, page, size int) (*PreviewPage, error) {
	artifact, err := s.artifactRepo.FindByID(artifactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}

	var rows []parser.Record
	if err := json.Unmarshal(artifact.Rows, &rows); err != nil {
		return nil, fmt.Errorf("制品 %d 的暂存载荷损坏: %w", artifactID, err)
	}

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 500 {
		size = 20
	}

	total := len(rows)
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	totalPages := (total + size - 1) / size

	return &PreviewPage{
		Columns:       previewColumns(artifact),
		Content:       rows[start:end],
		TotalElements: int64(total),
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

// previewColumns 组装列描述：监测/改善来自暂存时解析的映射，
// 参照表来自原始表头（内省预览是尽力而为，不需要权威）。
func previewColumns(artifact *model.UploadArtifact) []ColumnDescriptor {
	if artifact.CategoryKind == model.KindReference {
		var headers []string
		if err := json.Unmarshal(artifact.Headers, &headers); err != nil {
			return nil
		}
		cols := make([]ColumnDescriptor, 0, len(headers))
		for _, h := range headers {
			cols = append(cols, ColumnDescriptor{Field: h, Column: h})
		}
		return cols
	}

	var mapping map[string]string
	if err := json.Unmarshal(artifact.ColumnMapping, &mapping); err != nil {
		return nil
	}
	cols := make([]ColumnDescriptor, 0, len(mapping))
	for field, col := range mapping {
		cols = append(cols, ColumnDescriptor{Field: field, Column: col})
	}
	// map 无序，按字段名排序保证输出稳定
	sort.Slice(cols, func(i, j int) bool { return cols[i].Field < cols[j].Field })
	return cols
}
