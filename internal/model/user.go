// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色。OPERATOR 负责上传报表，REVIEWER 负责审批，ADMIN 兼具管理操作（如删除制品）。
const (
	RoleOperator = "OPERATOR"
	RoleReviewer = "REVIEWER"
	RoleAdmin    = "ADMIN"
)

// User 定义了 users 表的 ORM 模型。
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;default:'OPERATOR'" json:"role"`
	CompanyID *uint     `json:"companyId,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// CanDecide 报告该用户是否具备审批能力。
func (u *User) CanDecide() bool {
	return u.Role == RoleReviewer || u.Role == RoleAdmin
}
