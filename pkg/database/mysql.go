package database

import (
	"time"

	"envportal-go/internal/model"
	"envportal-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	// TranslateError 把驱动错误翻译为 gorm 统一错误，便于识别唯一键冲突
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
}

// AutoMigrate 迁移核心表：制品表、用户表与低基数参照表。
// 监测/改善目标表由环保数据库预先建好，不在此列。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.UploadArtifact{},
		&model.Year{},
		&model.Period{},
		&model.Station{},
		&model.Company{},
		&model.MainCategory{},
		&model.SubCategory{},
		&model.Unit{},
		&model.ReportIndex{},
	)
}
