package catalog

import (
	"testing"

	"envportal-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogResolveMonitoring(t *testing.T) {
	c := New()

	schema, err := c.Resolve(model.KindMonitoring, "SO2")
	require.NoError(t, err)
	assert.Equal(t, "Env_Wind_SO2", schema.TargetTable)

	// 测量列与隐含关系列合并在同一份字典里
	assert.Equal(t, "day1st_result_ppm", schema.FieldColumns["day1st_result_ppm"])
	assert.Equal(t, "station_id", schema.FieldColumns["station_id"])
	assert.Equal(t, "company_id", schema.FieldColumns["company_id"])
	assert.Equal(t, "report_by", schema.FieldColumns["reportBy"])
}

func TestCatalogResolveEnhancement(t *testing.T) {
	c := New()

	schema, err := c.Resolve(model.KindEnhancement, "TreePlanting")
	require.NoError(t, err)
	assert.Equal(t, "Enh_Tree_Planting", schema.TargetTable)
	assert.Equal(t, "species", schema.FieldColumns["species"])
	assert.Equal(t, "station_id", schema.FieldColumns["station_id"])
}

func TestCatalogResolveReference(t *testing.T) {
	c := New()

	schema, err := c.Resolve(model.KindReference, "periods")
	require.NoError(t, err)
	assert.Equal(t, "Periods", schema.TargetTable)
	// 参照表不携带字典，列清单留给运行时内省
	assert.Empty(t, schema.FieldColumns)
}

func TestIsRelationalField(t *testing.T) {
	assert.True(t, IsRelationalField("station_id"))
	assert.True(t, IsRelationalField("company_id"))
	assert.True(t, IsRelationalField("reportBy"))
	assert.False(t, IsRelationalField("day1st_result_ppm"))
	assert.False(t, IsRelationalField("report_by"))
}

func TestCatalogResolveUnknown(t *testing.T) {
	c := New()

	_, err := c.Resolve(model.KindMonitoring, "CH4")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = c.Resolve("WEATHER", "SO2")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCatalogList(t *testing.T) {
	c := New()

	assert.Len(t, c.List(model.KindMonitoring), 15)
	assert.Len(t, c.List(model.KindEnhancement), 10)
	assert.Len(t, c.List(model.KindReference), 8)
	assert.Nil(t, c.List("WEATHER"))
}
