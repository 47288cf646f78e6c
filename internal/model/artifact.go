// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"encoding/json"
	"time"
)

// 制品生命周期状态。状态是单调的：PENDING 只能迁移到 APPROVED 或 REJECTED，
// 终态之后不再变化。
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// 类别种类，决定采用哪种表结构解析策略。
const (
	KindMonitoring  = "MONITORING"  // 监测子类：固定字段字典
	KindEnhancement = "ENHANCEMENT" // 改善子表：固定字段字典
	KindReference   = "REFERENCE"   // 参照表：运行时列清单内省
)

// UploadArtifact 定义了 upload_artifacts 表的 ORM 模型。
// 一条记录对应一次报表上传：元数据、解析后的行、解析出的目标表与列映射，
// 以及暂存时预先推导好的外键链。审批通过前，任何目标表都看不到这些行。
type UploadArtifact struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName   string `gorm:"type:varchar(255);not null" json:"fileName"`
	StoredName string `gorm:"type:varchar(255);not null" json:"storedName"`
	FileSize   int64  `gorm:"not null" json:"fileSize"`
	MediaType  string `gorm:"type:varchar(100)" json:"mediaType"`
	UploadedBy uint   `gorm:"not null;index" json:"uploadedBy"`
	Status     string `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	// 类别绑定：种类 + 类别标识 + 暂存时解析出的目标表与列映射。
	// 参照表类别的 ColumnMapping 在暂存时只是尽力而为，审批时必须重新内省。
	CategoryKind  string          `gorm:"type:varchar(20);not null;index" json:"categoryKind"`
	CategoryID    string          `gorm:"type:varchar(100);not null" json:"categoryId"`
	TargetTable   string          `gorm:"type:varchar(100);not null" json:"targetTable"`
	ColumnMapping json.RawMessage `gorm:"type:json" json:"columnMapping"`

	// 载荷：解析出的表头与行序列，JSON 序列化后整体保存。
	Headers json.RawMessage `gorm:"type:json" json:"-"`
	Rows    json.RawMessage `gorm:"type:json" json:"-"`
	// RowCount 冗余保存行数，列表页无需反序列化载荷。
	RowCount int `gorm:"not null;default:0" json:"rowCount"`

	// 关系上下文（仅监测/改善类别）：期别及由其推导出的年度、主/子类别。
	PeriodID       *uint `json:"periodId,omitempty"`
	YearID         *uint `json:"yearId,omitempty"`
	MainCategoryID *uint `json:"mainCategoryId,omitempty"`
	SubCategoryID  *uint `json:"subCategoryId,omitempty"`

	// 审批决定：一次性写入，不可再变。
	DecidedBy    *uint      `json:"decidedBy,omitempty"`
	DecidedAt    *time.Time `gorm:"default:null" json:"decidedAt,omitempty"`
	RejectReason *string    `gorm:"type:varchar(500)" json:"rejectReason,omitempty"`
	InsertedRows int        `gorm:"not null;default:0" json:"insertedRows"`
	SkippedRows  int        `gorm:"not null;default:0" json:"skippedRows"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UploadArtifact) TableName() string {
	return "upload_artifacts"
}
