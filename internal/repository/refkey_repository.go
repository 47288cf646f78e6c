// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"
	"strings"

	"envportal-go/internal/model"

	"gorm.io/gorm"
)

// RefKeyRepository 接口定义了暂存/审批前的外键链推导。
// 监测/改善类别只做查找、绝不创建；唯一的例外是参照表 Periods 审批时
// 按起始日期“查找或创建”年度行。
type RefKeyRepository interface {
	FindPeriod(periodID uint) (*model.Period, error)
	FindSubCategory(name string) (*model.SubCategory, error)
	FindMainCategory(id uint) (*model.MainCategory, error)

	// GetOrCreateYear 幂等的查找或创建：同一年度重复推导不会产生重复行。
	// 幂等性由 Years.year 的唯一索引兜底，而不是应用层先查后插。
	GetOrCreateYear(tx *gorm.DB, year int) (*model.Year, error)
}

// refKeyRepository 是 RefKeyRepository 接口的 GORM 实现。
type refKeyRepository struct {
	db *gorm.DB
}

// NewRefKeyRepository 创建一个新的 RefKeyRepository 实例。
func NewRefKeyRepository(db *gorm.DB) RefKeyRepository {
	return &refKeyRepository{db: db}
}

// FindPeriod 按 ID 查找期别。
func (r *refKeyRepository) FindPeriod(periodID uint) (*model.Period, error) {
	var period model.Period
	err := r.db.Where("id = ?", periodID).First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// FindSubCategory 按名称查找监测子类别。
func (r *refKeyRepository) FindSubCategory(name string) (*model.SubCategory, error) {
	var sub model.SubCategory
	err := r.db.Where("name = ?", name).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindMainCategory 按 ID 查找主类别。
func (r *refKeyRepository) FindMainCategory(id uint) (*model.MainCategory, error) {
	var main model.MainCategory
	err := r.db.Where("id = ?", id).First(&main).Error
	if err != nil {
		return nil, err
	}
	return &main, nil
}

// GetOrCreateYear 先查找；未命中则插入，撞上唯一索引时回退为再次查找。
// tx 为 nil 时使用仓库自身的连接。
func (r *refKeyRepository) GetOrCreateYear(tx *gorm.DB, year int) (*model.Year, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var row model.Year
	err := db.Where("year = ?", year).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = model.Year{Year: year}
	if err := db.Create(&row).Error; err != nil {
		if isDuplicateKeyErr(err) {
			// 并发插入撞唯一索引：以库里已有的行为准
			var existing model.Year
			if ferr := db.Where("year = ?", year).First(&existing).Error; ferr != nil {
				return nil, ferr
			}
			return &existing, nil
		}
		return nil, err
	}
	return &row, nil
}

// isDuplicateKeyErr 判断是否唯一约束冲突。gorm 的 ErrDuplicatedKey 依赖
// 驱动翻译，这里再按消息兜底一层（MySQL 1062 / SQLite UNIQUE）。
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}
