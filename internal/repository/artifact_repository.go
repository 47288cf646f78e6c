// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"envportal-go/internal/model"

	"gorm.io/gorm"
)

// ArtifactRepository 接口定义了上传制品的持久化操作。
type ArtifactRepository interface {
	Create(artifact *model.UploadArtifact) error
	FindByID(id uint) (*model.UploadArtifact, error)
	FindPending(categoryKind string) ([]model.UploadArtifact, error)
	Delete(id uint) error

	// TransitionStatus 在 tx 内做条件状态迁移：仅当当前状态为 PENDING 时生效，
	// 返回是否真的迁移了。并发决定靠这一条件更新裁决，而不是先读后写。
	TransitionStatus(tx *gorm.DB, id uint, to string, decidedBy uint, decidedAt time.Time, extra map[string]interface{}) (bool, error)
}

// artifactRepository 是 ArtifactRepository 接口的 GORM 实现。
type artifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository 创建一个新的 ArtifactRepository 实例。
func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{db: db}
}

// Create 在数据库中创建一条制品记录。
func (r *artifactRepository) Create(artifact *model.UploadArtifact) error {
	return r.db.Create(artifact).Error
}

// FindByID 按 ID 检索制品。
func (r *artifactRepository) FindByID(id uint) (*model.UploadArtifact, error) {
	var artifact model.UploadArtifact
	err := r.db.Where("id = ?", id).First(&artifact).Error
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// FindPending 检索待审批的制品，可按类别种类过滤；按创建时间升序，先到先审。
func (r *artifactRepository) FindPending(categoryKind string) ([]model.UploadArtifact, error) {
	var artifacts []model.UploadArtifact
	query := r.db.Where("status = ?", model.StatusPending)
	if categoryKind != "" {
		query = query.Where("category_kind = ?", categoryKind)
	}
	err := query.Order("created_at asc").Find(&artifacts).Error
	return artifacts, err
}

// Delete 删除一条制品记录（管理操作，独立于审批流程）。
func (r *artifactRepository) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&model.UploadArtifact{}).Error
}

// TransitionStatus 条件状态迁移。WHERE 带上 status=PENDING，使迁移本身成为
// 并发裁决点：RowsAffected 为 0 说明别的决定已经先落地。
func (r *artifactRepository) TransitionStatus(tx *gorm.DB, id uint, to string, decidedBy uint, decidedAt time.Time, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"decided_by": decidedBy,
		"decided_at": decidedAt,
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&model.UploadArtifact{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
