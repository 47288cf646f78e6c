package service

import (
	"context"
	"fmt"
	"testing"

	"envportal-go/internal/model"
	"envportal-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewKeepsOriginalOrder(t *testing.T) {
	env := newTestEnv(t)

	table := &parser.Table{Headers: []string{"station_id", "day1st_result_ppm"}}
	for i := 0; i < 45; i++ {
		table.Rows = append(table.Rows, parser.Record{
			"station_id":        fmt.Sprintf("%d", i+1),
			"day1st_result_ppm": "0.01",
		})
	}

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", table)
	require.NoError(t, err)

	page, err := env.preview.Preview(artifact.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(45), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Number)
	require.Len(t, page.Content, 20)
	assert.Equal(t, "1", page.Content[0]["station_id"])
	assert.Equal(t, "20", page.Content[19]["station_id"])

	// 第三页只剩 5 行，行序仍是上传时的原始顺序
	page, err = env.preview.Preview(artifact.ID, 3, 20)
	require.NoError(t, err)
	require.Len(t, page.Content, 5)
	assert.Equal(t, "41", page.Content[0]["station_id"])
	assert.Equal(t, "45", page.Content[4]["station_id"])

	// 越界页返回空内容而不是错误
	page, err = env.preview.Preview(artifact.ID, 9, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Content)
}

func TestPreviewColumnsSortedByField(t *testing.T) {
	env := newTestEnv(t)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	page, err := env.preview.Preview(artifact.ID, 1, 20)
	require.NoError(t, err)
	require.NotEmpty(t, page.Columns)
	for i := 1; i < len(page.Columns); i++ {
		assert.Less(t, page.Columns[i-1].Field, page.Columns[i].Field)
	}
}

func TestPreviewReferenceColumnsFollowHeaders(t *testing.T) {
	env := newTestEnv(t)

	table := &parser.Table{
		Headers: []string{"symbol", "name"},
		Rows:    []parser.Record{{"symbol": "dB", "name": "分贝"}},
	}
	artifact, err := env.staging.Stage(context.Background(), uploadMeta(0), model.KindReference, "units", table)
	require.NoError(t, err)

	page, err := env.preview.Preview(artifact.ID, 1, 20)
	require.NoError(t, err)
	// 参照表预览列跟随原始表头顺序
	require.Len(t, page.Columns, 2)
	assert.Equal(t, "symbol", page.Columns[0].Field)
	assert.Equal(t, "name", page.Columns[1].Field)
}

func TestPreviewDefaultsAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	artifact, err := env.staging.Stage(context.Background(), uploadMeta(env.periodID), model.KindMonitoring, "SO2", so2Table())
	require.NoError(t, err)

	// 非法分页参数回退到默认值
	page, err := env.preview.Preview(artifact.ID, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 20, page.Size)

	_, err = env.preview.Preview(9999, 1, 20)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}
