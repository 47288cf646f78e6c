package catalog

import (
	"context"
	"testing"

	"envportal-go/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newResolverDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SubCategory{}, &model.Year{}))
	return db
}

func TestResolveColumnsExcludesIdentity(t *testing.T) {
	db := newResolverDB(t)
	r := NewSchemaResolver(db, nil, 0)

	cols, err := r.ResolveColumns((model.SubCategory{}).TableName())
	require.NoError(t, err)

	assert.Contains(t, cols, "name")
	assert.Contains(t, cols, "main_category_id")
	// 自增主键不是可写列
	assert.NotContains(t, cols, "id")
}

func TestResolveColumnsMissingTable(t *testing.T) {
	db := newResolverDB(t)
	r := NewSchemaResolver(db, nil, 0)

	_, err := r.ResolveColumns("No_Such_Table")
	assert.ErrorIs(t, err, ErrTableMissing)
}

func TestResolveColumnsCachedWithoutRedis(t *testing.T) {
	db := newResolverDB(t)
	r := NewSchemaResolver(db, nil, 0)

	// 无缓存客户端时退化为直接内省
	cols, err := r.ResolveColumnsCached(context.Background(), (model.Year{}).TableName())
	require.NoError(t, err)
	assert.Contains(t, cols, "year")
	assert.NotContains(t, cols, "id")
}
