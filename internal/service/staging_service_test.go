package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"envportal-go/internal/catalog"
	"envportal-go/internal/model"
	"envportal-go/internal/parser"
	"envportal-go/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv 聚合服务层测试的全部依赖：内存数据库 + 预置的参照数据。
type testEnv struct {
	db       *gorm.DB
	staging  StagingService
	approval ApprovalService
	preview  PreviewService
	periodID uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))

	// 预置外键链：年度 → 期别，主类别 → 子类别
	year := model.Year{Year: 2024}
	require.NoError(t, db.Create(&year).Error)
	period := model.Period{
		Name:      "2024年第一季度",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		YearID:    year.ID,
	}
	require.NoError(t, db.Create(&period).Error)

	mainAir := model.MainCategory{Name: "空气"}
	require.NoError(t, db.Create(&mainAir).Error)
	require.NoError(t, db.Create(&model.SubCategory{Name: "SO2", MainCategoryID: mainAir.ID}).Error)
	require.NoError(t, db.Create(&model.SubCategory{Name: "TreePlanting", MainCategoryID: mainAir.ID}).Error)

	artifactRepo := repository.NewArtifactRepository(db)
	refKeyRepo := repository.NewRefKeyRepository(db)
	cat := catalog.New()
	resolver := catalog.NewSchemaResolver(db, nil, 0)

	return &testEnv{
		db:       db,
		staging:  NewStagingService(artifactRepo, refKeyRepo, cat, resolver),
		approval: NewApprovalService(db, artifactRepo, refKeyRepo, cat, resolver, nil),
		preview:  NewPreviewService(artifactRepo),
		periodID: period.ID,
	}
}

// createSO2Table 手工建监测目标表。真实环境里这些表由环保数据库预先建好。
func createSO2Table(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE Env_Wind_SO2 (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_id INTEGER,
		station_id INTEGER,
		company_id INTEGER,
		report_by TEXT,
		day1st_result_ppm TEXT,
		day2nd_result_ppm TEXT,
		day3rd_result_ppm TEXT
	)`).Error)
}

func so2Table() *parser.Table {
	return &parser.Table{
		Headers: []string{"station_id", "day1st_result_ppm", "day2nd_result_ppm"},
		Rows: []parser.Record{
			{"station_id": "1", "day1st_result_ppm": "0.012", "day2nd_result_ppm": "0.015"},
			{"station_id": "2", "day1st_result_ppm": "0.020", "day2nd_result_ppm": "0.018"},
		},
	}
}

func uploadMeta(periodID uint) UploadMeta {
	return UploadMeta{
		FileName:   "so2_q1.csv",
		StoredName: "1_so2_q1.csv",
		MediaType:  "text/csv",
		FileSize:   256,
		UploaderID: 1,
		PeriodID:   periodID,
	}
}

func TestStageMonitoringDerivesKeys(t *testing.T) {
	env := newTestEnv(t)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, artifact.Status)
	assert.Equal(t, "Env_Wind_SO2", artifact.TargetTable)
	assert.Equal(t, 2, artifact.RowCount)

	// 外键链在暂存时已经推导完毕
	require.NotNil(t, artifact.PeriodID)
	assert.Equal(t, env.periodID, *artifact.PeriodID)
	require.NotNil(t, artifact.YearID)
	require.NotNil(t, artifact.MainCategoryID)
	require.NotNil(t, artifact.SubCategoryID)

	// 暂存不触碰目标表：此时 Env_Wind_SO2 根本不存在
	var mapping map[string]string
	require.NoError(t, json.Unmarshal(artifact.ColumnMapping, &mapping))
	assert.Equal(t, "day1st_result_ppm", mapping["day1st_result_ppm"])
	assert.Equal(t, "report_by", mapping["reportBy"])
}

func TestStageEmptyPayload(t *testing.T) {
	env := newTestEnv(t)

	empty := &parser.Table{Headers: []string{"a"}, Rows: []parser.Record{}}
	_, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", empty)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	var count int64
	require.NoError(t, env.db.Model(&model.UploadArtifact{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStageUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "CH4", so2Table())
	assert.ErrorIs(t, err, catalog.ErrUnknownCategory)
}

func TestStageUnresolvedPeriod(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.staging.Stage(context.Background(), uploadMeta(9999), model.KindMonitoring, "SO2", so2Table())
	assert.ErrorIs(t, err, ErrUnresolvedForeignKey)

	_, err = env.staging.Stage(context.Background(), uploadMeta(0), model.KindMonitoring, "SO2", so2Table())
	assert.ErrorIs(t, err, ErrUnresolvedForeignKey)
}

func TestStageUnknownSubCategory(t *testing.T) {
	env := newTestEnv(t)

	// NO2 在目录里有，但 Sub_Categories 没有登记对应子类别
	_, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "NO2", so2Table())
	assert.ErrorIs(t, err, ErrUnresolvedForeignKey)
}

func TestStageReferencePremapsColumns(t *testing.T) {
	env := newTestEnv(t)

	table := &parser.Table{
		Headers: []string{"name", "symbol", "备注"},
		Rows: []parser.Record{
			{"name": "毫克每升", "symbol": "mg/L", "备注": "无"},
		},
	}

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(0), model.KindReference, "units", table)
	require.NoError(t, err)

	assert.Equal(t, "Units", artifact.TargetTable)
	assert.Nil(t, artifact.PeriodID)

	// 预映射 = 表头 ∩ 实际列；杂项表头不进映射
	var mapping map[string]string
	require.NoError(t, json.Unmarshal(artifact.ColumnMapping, &mapping))
	assert.Equal(t, "name", mapping["name"])
	assert.Equal(t, "symbol", mapping["symbol"])
	assert.NotContains(t, mapping, "备注")
}
