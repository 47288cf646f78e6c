// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 本文件定义低基数参照表。监测/改善目标表（Env_*/Enh_* 约 25 张，形状各异）
// 由环保数据库预先建好，不在 ORM 模型范围内，插入时一律走动态表名。

// Year 对应参照表 Years。year 列由唯一索引保证幂等的“查找或创建”。
type Year struct {
	ID   uint `gorm:"primaryKey;autoIncrement" json:"id"`
	Year int  `gorm:"uniqueIndex;not null" json:"year"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Year) TableName() string {
	return "Years"
}

// Period 对应参照表 Periods，代表一个监测期别（通常为季度）。
type Period struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	StartDate time.Time `gorm:"not null" json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	YearID    uint      `gorm:"not null;index" json:"yearId"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Period) TableName() string {
	return "Periods"
}

// Station 对应参照表 Stations，代表一个监测站位。
type Station struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Code     string  `gorm:"type:varchar(50);not null" json:"code"`
	Name     string  `gorm:"type:varchar(100);not null" json:"name"`
	Location string  `gorm:"type:varchar(255)" json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Station) TableName() string {
	return "Stations"
}

// Company 对应参照表 Companies，代表一个受监管单位。
type Company struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"type:varchar(200);not null" json:"name"`
	Contact string `gorm:"type:varchar(100)" json:"contact"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Company) TableName() string {
	return "Companies"
}

// MainCategory 对应参照表 Main_Categories（如「空气」「水质」「噪音」）。
type MainCategory struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (MainCategory) TableName() string {
	return "Main_Categories"
}

// SubCategory 对应参照表 Sub_Categories。Name 即监测类别标识（如 "SO2"），
// 暂存时据此推导所属主类别。
type SubCategory struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	MainCategoryID uint   `gorm:"not null;index" json:"mainCategoryId"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SubCategory) TableName() string {
	return "Sub_Categories"
}

// Unit 对应参照表 Units（计量单位）。
type Unit struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"type:varchar(50);not null" json:"name"`
	Symbol string `gorm:"type:varchar(20)" json:"symbol"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Unit) TableName() string {
	return "Units"
}

// ReportIndex 对应参照表 Report_Indexes（报表指标定义）。
type ReportIndex struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	UnitID *uint  `json:"unitId,omitempty"`
	Limit  string `gorm:"type:varchar(100)" json:"limit"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ReportIndex) TableName() string {
	return "Report_Indexes"
}
