// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"envportal-go/internal/catalog"
	"envportal-go/internal/model"
	"envportal-go/internal/parser"
	"envportal-go/internal/repository"
	"envportal-go/pkg/log"

	"gorm.io/gorm"
)

// UploadMeta 携带一次上传的文件元数据与上下文。
type UploadMeta struct {
	FileName   string
	StoredName string
	MediaType  string
	FileSize   int64
	UploaderID uint
	// PeriodID 监测/改善类别必填；参照表类别忽略。
	PeriodID uint
}

// StagingService 接口定义了上传暂存的业务操作。
// 暂存 = 解析 + 解析类别/外键 + 落制品记录，目标表此时看不到任何行。
type StagingService interface {
	Stage(ctx context.Context, meta UploadMeta, categoryKind, categoryID string, table *parser.Table) (*model.UploadArtifact, error)
}

// stagingService 是 StagingService 接口的实现。
type stagingService struct {
	artifactRepo repository.ArtifactRepository
	refKeyRepo   repository.RefKeyRepository
	catalog      *catalog.Catalog
	resolver     *catalog.SchemaResolver
}

// NewStagingService 创建一个新的 StagingService 实例。
func NewStagingService(
	artifactRepo repository.ArtifactRepository,
	refKeyRepo repository.RefKeyRepository,
	cat *catalog.Catalog,
	resolver *catalog.SchemaResolver,
) StagingService {
	return &stagingService{
		artifactRepo: artifactRepo,
		refKeyRepo:   refKeyRepo,
		catalog:      cat,
		resolver:     resolver,
	}
}

// Stage 暂存一次上传。类别解析与外键推导在这里提前做掉，
// 审批时不必重新推导业务键（但仍要重新校验映射是否还存在）。
func (s *stagingService) Stage(ctx context.Context, meta UploadMeta, categoryKind, categoryID string, table *parser.Table) (*model.UploadArtifact, error) {
	log.Infof("[Stage] 开始暂存上传, 文件: %s, 类别: %s/%s, 行数: %d", meta.FileName, categoryKind, categoryID, len(table.Rows))

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: 文件 %s 没有数据行", ErrEmptyPayload, meta.FileName)
	}

	schema, err := s.catalog.Resolve(categoryKind, categoryID)
	if err != nil {
		log.Warnf("[Stage] 类别解析失败, %s/%s: %v", categoryKind, categoryID, err)
		return nil, err
	}

	artifact := &model.UploadArtifact{
		FileName:     meta.FileName,
		StoredName:   meta.StoredName,
		FileSize:     meta.FileSize,
		MediaType:    meta.MediaType,
		UploadedBy:   meta.UploaderID,
		Status:       model.StatusPending,
		CategoryKind: categoryKind,
		CategoryID:   categoryID,
		TargetTable:  schema.TargetTable,
		RowCount:     len(table.Rows),
	}

	// 列映射：监测/改善用固定字典；参照表尽力内省一份只读预映射，
	// 失败不阻断暂存（审批时必须重新内省）。
	mapping := schema.FieldColumns
	if categoryKind == model.KindReference {
		mapping = s.referenceMapping(ctx, schema.TargetTable, table.Headers)
	}

	// 监测/改善：期别→年度、子类别→主类别，链条断裂则硬失败
	if categoryKind == model.KindMonitoring || categoryKind == model.KindEnhancement {
		if err := s.deriveKeys(artifact, categoryID, meta.PeriodID); err != nil {
			return nil, err
		}
	}

	if artifact.ColumnMapping, err = json.Marshal(mapping); err != nil {
		return nil, err
	}
	if artifact.Headers, err = json.Marshal(table.Headers); err != nil {
		return nil, err
	}
	if artifact.Rows, err = json.Marshal(table.Rows); err != nil {
		return nil, err
	}

	if err := s.artifactRepo.Create(artifact); err != nil {
		log.Error("[Stage] 写入制品记录失败", err)
		return nil, err
	}

	log.Infof("[Stage] 暂存成功, 制品ID: %d, 目标表: %s, 行数: %d", artifact.ID, artifact.TargetTable, artifact.RowCount)
	return artifact, nil
}

// deriveKeys 推导监测/改善制品的外键链：期别→年度、子类别→主类别。
// 只查找、不创建；任何一环缺失都返回 ErrUnresolvedForeignKey。
func (s *stagingService) deriveKeys(artifact *model.UploadArtifact, categoryID string, periodID uint) error {
	if periodID == 0 {
		return fmt.Errorf("%w: 未提供期别", ErrUnresolvedForeignKey)
	}

	period, err := s.refKeyRepo.FindPeriod(periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 期别 %d 不存在", ErrUnresolvedForeignKey, periodID)
		}
		return err
	}
	if period.YearID == 0 {
		return fmt.Errorf("%w: 期别 %d 未关联年度", ErrUnresolvedForeignKey, periodID)
	}

	artifact.PeriodID = &period.ID
	artifact.YearID = &period.YearID

	// 监测与改善的类别标识都登记在 Sub_Categories 中，统一推导所属主类别
	sub, err := s.refKeyRepo.FindSubCategory(categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 子类别 %q 不存在", ErrUnresolvedForeignKey, categoryID)
		}
		return err
	}
	main, err := s.refKeyRepo.FindMainCategory(sub.MainCategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 子类别 %q 的主类别 %d 不存在", ErrUnresolvedForeignKey, categoryID, sub.MainCategoryID)
		}
		return err
	}

	artifact.SubCategoryID = &sub.ID
	artifact.MainCategoryID = &main.ID
	return nil
}

// referenceMapping 为参照表上传做尽力而为的预映射：表头 ∩ 实际列，
// 同名直映。内省失败只记日志，返回空映射。
func (s *stagingService) referenceMapping(ctx context.Context, targetTable string, headers []string) map[string]string {
	mapping := make(map[string]string)
	cols, err := s.resolver.ResolveColumnsCached(ctx, targetTable)
	if err != nil {
		log.Warnf("[Stage] 暂存阶段内省参照表 %s 失败（不阻断）: %v", targetTable, err)
		return mapping
	}
	for _, h := range headers {
		if _, ok := cols[h]; ok {
			mapping[h] = h
		}
	}
	return mapping
}
