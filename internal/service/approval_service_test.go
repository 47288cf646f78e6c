package service

import (
	"context"
	"testing"

	"envportal-go/internal/model"
	"envportal-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveInsertsRowsAndTransitions(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	result, err := env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Zero(t, result.Skipped)

	var got model.UploadArtifact
	require.NoError(t, env.db.First(&got, artifact.ID).Error)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.Equal(t, 2, got.InsertedRows)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, uint(7), *got.DecidedBy)

	// 每一行都携带暂存时推导的期别外键
	var periodIDs []uint
	require.NoError(t, env.db.Table("Env_Wind_SO2").Order("id asc").Pluck("period_id", &periodIDs).Error)
	require.Len(t, periodIDs, 2)
	for _, id := range periodIDs {
		assert.Equal(t, env.periodID, id)
	}
}

func TestApproveSkipsRowsWithoutMappedValues(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	table := so2Table()
	// 该行只有映射之外的字段有值，应被宽容跳过而不是报错
	table.Rows = append(table.Rows, parser.Record{"随手备注": "下雨停测"})

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", table)
	require.NoError(t, err)

	result, err := env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	var got model.UploadArtifact
	require.NoError(t, env.db.First(&got, artifact.ID).Error)
	assert.Equal(t, 1, got.SkippedRows)
}

func TestApproveSkipsRelationalOnlyRows(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	table := &parser.Table{
		Headers: []string{"station_id", "day1st_result_ppm"},
		Rows: []parser.Record{
			{"station_id": "1", "day1st_result_ppm": "0.012"},
			// 只有关系列、没有测量值的行不构成有效记录，跳过而不是插一行全空的测量
			{"station_id": "2"},
		},
	}

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", table)
	require.NoError(t, err)

	result, err := env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	var count int64
	require.NoError(t, env.db.Table("Env_Wind_SO2").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApproveRollsBackOnInsertFailure(t *testing.T) {
	env := newTestEnv(t)
	// 故意不建 Env_Wind_SO2：第一行插入即失败

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	_, err = env.approval.Approve(context.Background(), artifact.ID, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsertFailed)

	// 制品保持 PENDING，可修复后重试
	var got model.UploadArtifact
	require.NoError(t, env.db.First(&got, artifact.ID).Error)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Nil(t, got.DecidedBy)

	// 修复（建表）后重试同一制品即可成功
	createSO2Table(t, env.db)
	result, err := env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
}

func TestApproveAlreadyDecided(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	_, err = env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)

	// 终态之后再审批/驳回都拒绝
	_, err = env.approval.Approve(context.Background(), artifact.ID, 8)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	err = env.approval.Reject(context.Background(), artifact.ID, 8, "迟到的驳回")
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	// 目标表没有被二次写入
	var count int64
	require.NoError(t, env.db.Table("Env_Wind_SO2").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRejectLeavesTargetUntouched(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	require.NoError(t, env.approval.Reject(context.Background(), artifact.ID, 7, "数据异常"))

	var got model.UploadArtifact
	require.NoError(t, env.db.First(&got, artifact.ID).Error)
	assert.Equal(t, model.StatusRejected, got.Status)
	require.NotNil(t, got.RejectReason)
	assert.Equal(t, "数据异常", *got.RejectReason)

	var count int64
	require.NoError(t, env.db.Table("Env_Wind_SO2").Count(&count).Error)
	assert.Zero(t, count)

	// 驳回后不可再审批通过
	_, err = env.approval.Approve(context.Background(), artifact.ID, 7)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApproveArtifactNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.approval.Approve(context.Background(), 9999, 7)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	err = env.approval.Reject(context.Background(), 9999, 7, "")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestApproveReferencePeriodsDerivesYear(t *testing.T) {
	env := newTestEnv(t)

	table := &parser.Table{
		Headers: []string{"name", "start_date"},
		Rows: []parser.Record{
			{"name": "2025年第一季度", "start_date": "2025-01-01"},
			{"name": "2025年第二季度", "start_date": "2025/04/01"},
		},
	}

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(0), model.KindReference, "periods", table)
	require.NoError(t, err)

	result, err := env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	// 两行同属 2025 年，年度行只创建一次
	var year model.Year
	require.NoError(t, env.db.Where("year = ?", 2025).First(&year).Error)
	var count int64
	require.NoError(t, env.db.Model(&model.Year{}).Where("year = ?", 2025).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var yearIDs []uint
	require.NoError(t, env.db.Table("Periods").Where("year_id = ?", year.ID).Pluck("year_id", &yearIDs).Error)
	assert.Len(t, yearIDs, 2)
}

func TestApproveReferencePeriodsBadDateAborts(t *testing.T) {
	env := newTestEnv(t)

	table := &parser.Table{
		Headers: []string{"name", "start_date"},
		Rows: []parser.Record{
			{"name": "正常期别", "start_date": "2025-01-01"},
			{"name": "坏日期", "start_date": "一月一日"},
		},
	}

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(0), model.KindReference, "periods", table)
	require.NoError(t, err)

	_, err = env.approval.Approve(context.Background(), artifact.ID, 7)
	assert.ErrorIs(t, err, ErrInsertFailed)
	// 错误里列出可接受的日期格式，提交人据此修正上传
	assert.ErrorContains(t, err, "2006-01-02")

	// 整体回滚：第一行也不落库，制品保持 PENDING
	var count int64
	require.NoError(t, env.db.Table("Periods").Where("name = ?", "正常期别").Count(&count).Error)
	assert.Zero(t, count)

	var got model.UploadArtifact
	require.NoError(t, env.db.First(&got, artifact.ID).Error)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestDeleteArtifactRecordOnly(t *testing.T) {
	env := newTestEnv(t)
	createSO2Table(t, env.db)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)
	_, err = env.approval.Approve(context.Background(), artifact.ID, 7)
	require.NoError(t, err)

	require.NoError(t, env.approval.Delete(artifact.ID))
	assert.ErrorIs(t, env.approval.Delete(artifact.ID), ErrArtifactNotFound)

	// 已入库的行不随制品删除回收
	var count int64
	require.NoError(t, env.db.Table("Env_Wind_SO2").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestListPendingFilters(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	enh := &parser.Table{
		Headers: []string{"species", "quantity"},
		Rows:    []parser.Record{{"species": "樟树", "quantity": "120"}},
	}
	_, err = env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindEnhancement, "TreePlanting", enh)
	require.NoError(t, err)

	all, err := env.approval.ListPending("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	monitoring, err := env.approval.ListPending(model.KindMonitoring)
	require.NoError(t, err)
	require.Len(t, monitoring, 1)
	assert.Equal(t, model.KindMonitoring, monitoring[0].CategoryKind)
}
