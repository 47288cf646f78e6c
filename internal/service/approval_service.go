// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"envportal-go/internal/catalog"
	"envportal-go/internal/model"
	"envportal-go/internal/parser"
	"envportal-go/internal/repository"
	"envportal-go/pkg/kafka"
	"envportal-go/pkg/log"
	"envportal-go/pkg/tasks"

	"gorm.io/gorm"
)

// DecisionResult 是一次审批通过的产物：实际插入与被跳过的行数。
type DecisionResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// ApprovalService 接口定义了制品审批的状态机与事务提交。
// 状态迁移是单调的：PENDING → APPROVED | REJECTED，终态不再变化。
type ApprovalService interface {
	Approve(ctx context.Context, artifactID, actorID uint) (*DecisionResult, error)
	Reject(ctx context.Context, artifactID, actorID uint, reason string) error
	ListPending(categoryKind string) ([]model.UploadArtifact, error)
	// Delete 管理操作：删除制品记录本身，独立于审批流程，不回收已提交的行。
	Delete(artifactID uint) error
}

// approvalService 是 ApprovalService 接口的实现。
// 持有 *gorm.DB 是因为提交必须在一个跨动态目标表与制品表的事务里完成。
type approvalService struct {
	db           *gorm.DB
	artifactRepo repository.ArtifactRepository
	refKeyRepo   repository.RefKeyRepository
	catalog      *catalog.Catalog
	resolver     *catalog.SchemaResolver
	publisher    kafka.DecisionPublisher
}

// NewApprovalService 创建一个新的 ApprovalService 实例。
// publisher 可以为 nil（如单元测试），此时不发布决定事件。
func NewApprovalService(
	db *gorm.DB,
	artifactRepo repository.ArtifactRepository,
	refKeyRepo repository.RefKeyRepository,
	cat *catalog.Catalog,
	resolver *catalog.SchemaResolver,
	publisher kafka.DecisionPublisher,
) ApprovalService {
	return &approvalService{
		db:           db,
		artifactRepo: artifactRepo,
		refKeyRepo:   refKeyRepo,
		catalog:      cat,
		resolver:     resolver,
		publisher:    publisher,
	}
}

// Approve 审批通过：重新校验映射，在单个事务里按原始行序插入全部有效行，
// 并条件迁移状态。任何一行插入失败都整体回滚，制品保持 PENDING 可重试。
// 空行跳过与插入失败是两条不同的线：跳过是数据质量上的宽容，
// 插入失败意味着契约被破坏，绝不允许部分提交。
func (s *approvalService) Approve(ctx context.Context, artifactID, actorID uint) (*DecisionResult, error) {
	log.Infof("[Approve] 开始审批, 制品ID: %d, 审批人: %d", artifactID, actorID)

	artifact, err := s.loadForDecision(artifactID)
	if err != nil {
		return nil, err
	}

	// 重新解析列映射：暂存时存在的映射可能已经消失（目录调整、表被改名），
	// 必须在触碰任何行之前失败。
	mapping, err := s.resolveMapping(artifact)
	if err != nil {
		log.Warnf("[Approve] 映射重解析失败, 制品ID: %d: %v", artifactID, err)
		return nil, err
	}

	var rows []parser.Record
	if err := json.Unmarshal(artifact.Rows, &rows); err != nil {
		return nil, fmt.Errorf("制品 %d 的暂存载荷损坏: %w", artifactID, err)
	}

	result := &DecisionResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range rows {
			values, matched, err := s.buildRow(tx, artifact, mapping, rec)
			if err != nil {
				return fmt.Errorf("第 %d 行: %w", i+1, err)
			}
			if matched == 0 {
				// 没有任何映射列有值，宽容跳过
				result.Skipped++
				continue
			}
			if err := tx.Table(artifact.TargetTable).Create(values).Error; err != nil {
				return fmt.Errorf("%w: 第 %d 行写入 %s 失败: %v", ErrInsertFailed, i+1, artifact.TargetTable, err)
			}
			result.Inserted++
		}

		// 条件状态迁移是并发裁决的最终依据：另一个决定先落地时这里影响 0 行，
		// 本事务连同已插入的行一起回滚。
		ok, err := s.artifactRepo.TransitionStatus(tx, artifact.ID, model.StatusApproved, actorID, time.Now(), map[string]interface{}{
			"inserted_rows": result.Inserted,
			"skipped_rows":  result.Skipped,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyDecided
		}
		return nil
	})
	if err != nil {
		log.Warnf("[Approve] 审批失败已回滚, 制品ID: %d, error: %v", artifactID, err)
		return nil, err
	}

	log.Infof("[Approve] 审批通过, 制品ID: %d, 插入: %d, 跳过: %d", artifactID, result.Inserted, result.Skipped)
	s.publishDecision(ctx, artifact, model.StatusApproved, actorID, result, "")
	return result, nil
}

// Reject 审批拒绝：只做条件状态迁移，不触碰任何目标表。
func (s *approvalService) Reject(ctx context.Context, artifactID, actorID uint, reason string) error {
	log.Infof("[Reject] 开始拒绝, 制品ID: %d, 审批人: %d", artifactID, actorID)

	artifact, err := s.loadForDecision(artifactID)
	if err != nil {
		return err
	}

	ok, err := s.artifactRepo.TransitionStatus(s.db.WithContext(ctx), artifact.ID, model.StatusRejected, actorID, time.Now(), map[string]interface{}{
		"reject_reason": reason,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyDecided
	}

	log.Infof("[Reject] 已拒绝, 制品ID: %d", artifactID)
	s.publishDecision(ctx, artifact, model.StatusRejected, actorID, &DecisionResult{}, reason)
	return nil
}

// ListPending 返回待审批制品列表，可按类别种类过滤。
func (s *approvalService) ListPending(categoryKind string) ([]model.UploadArtifact, error) {
	return s.artifactRepo.FindPending(categoryKind)
}

// Delete 删除制品记录（管理操作）。
func (s *approvalService) Delete(artifactID uint) error {
	if _, err := s.artifactRepo.FindByID(artifactID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrArtifactNotFound
		}
		return err
	}
	return s.artifactRepo.Delete(artifactID)
}

// loadForDecision 加载制品并做决定前置校验。
func (s *approvalService) loadForDecision(artifactID uint) (*model.UploadArtifact, error) {
	artifact, err := s.artifactRepo.FindByID(artifactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}
	if artifact.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: 制品 %d 当前状态为 %s", ErrAlreadyDecided, artifactID, artifact.Status)
	}
	return artifact, nil
}

// resolveMapping 按类别种类重新解析列映射。
// 监测/改善查固定字典；参照表对目标表做实时内省（不走缓存）。
func (s *approvalService) resolveMapping(artifact *model.UploadArtifact) (map[string]string, error) {
	if artifact.CategoryKind == model.KindReference {
		cols, err := s.resolver.ResolveColumns(artifact.TargetTable)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnresolvedSchema, err)
		}
		var headers []string
		if err := json.Unmarshal(artifact.Headers, &headers); err != nil {
			return nil, fmt.Errorf("制品 %d 的表头损坏: %w", artifact.ID, err)
		}
		mapping := make(map[string]string)
		for _, h := range headers {
			if _, ok := cols[h]; ok {
				mapping[h] = h
			}
		}
		return mapping, nil
	}

	schema, err := s.catalog.Resolve(artifact.CategoryKind, artifact.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedSchema, err)
	}
	if schema.TargetTable != artifact.TargetTable {
		return nil, fmt.Errorf("%w: 类别 %s/%s 的目标表已从 %s 变为 %s",
			ErrUnresolvedSchema, artifact.CategoryKind, artifact.CategoryID, artifact.TargetTable, schema.TargetTable)
	}
	return schema.FieldColumns, nil
}

// buildRow 组装一行的列值集合：声明外键 ∪ 有值的映射字段。
// 列名只会来自已解析的映射，绝不直接取自上传数据的键，封死字段名注入面。
// 返回 matched 为测量字段的命中数：隐含关系列（station_id 等）不计入，
// 一行只有外键没有测量值时 matched 为 0，该行应被宽容跳过。
// 参照表没有关系列字典，所有映射字段都按数据列计数。
func (s *approvalService) buildRow(tx *gorm.DB, artifact *model.UploadArtifact, mapping map[string]string, rec parser.Record) (map[string]interface{}, int, error) {
	values := make(map[string]interface{}, len(mapping)+2)

	matched := 0
	for field, col := range mapping {
		v, ok := rec[field]
		if !ok || v == "" {
			continue
		}
		values[col] = v
		if artifact.CategoryKind == model.KindReference || !catalog.IsRelationalField(field) {
			matched++
		}
	}
	if matched == 0 {
		return nil, 0, nil
	}

	// 监测/改善：已提交行永远携带期别外键
	if artifact.PeriodID != nil {
		values["period_id"] = *artifact.PeriodID
	}

	// 参照表 Periods：由提交的起始日期推导（查找或创建）年度行。
	// 这是系统里唯一一处解析键时的隐式写入，幂等性由 Years.year 唯一索引保证。
	if artifact.CategoryKind == model.KindReference && artifact.TargetTable == (model.Period{}).TableName() {
		year, err := s.deriveYearFromStart(tx, rec)
		if err != nil {
			return nil, 0, err
		}
		values["year_id"] = year.ID
	}

	return values, matched, nil
}

// periodDateLayouts 是期别上传的 start_date 接受的全部日期写法。
var periodDateLayouts = []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05"}

// deriveYearFromStart 从期别行的起始日期推导年度外键。
// start_date 必须符合 periodDateLayouts 之一，解析失败时错误信息会列出
// 可接受的格式，提交人据此即可修正上传文件。
func (s *approvalService) deriveYearFromStart(tx *gorm.DB, rec parser.Record) (*model.Year, error) {
	raw := rec["start_date"]
	if raw == "" {
		return nil, fmt.Errorf("%w: 期别行缺少 start_date", ErrInsertFailed)
	}
	started, err := parseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法解析起始日期 %q, 支持的格式: %s",
			ErrInsertFailed, raw, strings.Join(periodDateLayouts, ", "))
	}
	year, err := s.refKeyRepo.GetOrCreateYear(tx, started.Year())
	if err != nil {
		return nil, fmt.Errorf("%w: 推导年度失败: %v", ErrInsertFailed, err)
	}
	return year, nil
}

// parseDate 按 periodDateLayouts 依次尝试解析。
func parseDate(raw string) (time.Time, error) {
	for _, layout := range periodDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别的日期格式 %q", raw)
}

// publishDecision 发布审批决定事件到 Kafka；失败只记日志，绝不回卷已落地的决定。
func (s *approvalService) publishDecision(ctx context.Context, artifact *model.UploadArtifact, decision string, actorID uint, result *DecisionResult, reason string) {
	if s.publisher == nil {
		return
	}
	event := tasks.DecisionEvent{
		ArtifactID:   artifact.ID,
		Decision:     decision,
		CategoryKind: artifact.CategoryKind,
		CategoryID:   artifact.CategoryID,
		TargetTable:  artifact.TargetTable,
		DecidedBy:    actorID,
		InsertedRows: result.Inserted,
		SkippedRows:  result.Skipped,
		Reason:       reason,
	}
	if err := s.publisher.PublishDecision(ctx, event); err != nil {
		log.Errorf("[Decision] 发布决定事件失败, 制品ID: %d, error: %v", artifact.ID, err)
	}
}
