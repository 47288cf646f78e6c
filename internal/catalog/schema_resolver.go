// Package catalog 维护类别目录与表结构解析。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"envportal-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ErrTableMissing 表示目标表在当前数据库中不存在或没有可用的数据列。
var ErrTableMissing = errors.New("target table missing")

// SchemaResolver 对参照表做运行时列清单内省：参照表形状简单，
// 直接读列目录即可，不需要人工字典。自增主键列被排除在可写集合之外。
type SchemaResolver struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
}

// NewSchemaResolver 创建一个列清单解析器。
// cache 可以为 nil（如单元测试），此时每次都直接内省。
func NewSchemaResolver(db *gorm.DB, cache *redis.Client, ttl time.Duration) *SchemaResolver {
	return &SchemaResolver{db: db, cache: cache, ttl: ttl}
}

// ResolveColumns 直接内省目标表的可写列集合。审批路径必须走这里，
// 不允许命中缓存：暂存与审批之间表可能被改名或删列。
func (r *SchemaResolver) ResolveColumns(table string) (map[string]struct{}, error) {
	migrator := r.db.Migrator()
	if !migrator.HasTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableMissing, table)
	}

	columnTypes, err := migrator.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("内省表 %s 的列目录失败: %w", table, err)
	}

	cols := make(map[string]struct{}, len(columnTypes))
	for _, ct := range columnTypes {
		if isIdentityColumn(ct) {
			continue
		}
		cols[ct.Name()] = struct{}{}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s 没有可写列", ErrTableMissing, table)
	}
	return cols, nil
}

// ResolveColumnsCached 走 Redis 缓存的内省，仅供暂存阶段的预映射使用。
// 缓存异常时退化为直接内省，不影响正确性。
func (r *SchemaResolver) ResolveColumnsCached(ctx context.Context, table string) (map[string]struct{}, error) {
	if r.cache == nil {
		return r.ResolveColumns(table)
	}

	key := "schema:cols:" + table
	if raw, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			cols := make(map[string]struct{}, len(names))
			for _, n := range names {
				cols[n] = struct{}{}
			}
			return cols, nil
		}
	} else if err != redis.Nil {
		log.Warnf("[SchemaResolver] 读取列清单缓存失败, table: %s, error: %v", table, err)
	}

	cols, err := r.ResolveColumns(table)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cols))
	for n := range cols {
		names = append(names, n)
	}
	if raw, err := json.Marshal(names); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			log.Warnf("[SchemaResolver] 写入列清单缓存失败, table: %s, error: %v", table, err)
		}
	}
	return cols, nil
}

// isIdentityColumn 判断一列是否是自动生成的标识列。
// 不同驱动对 AutoIncrement 的报告能力不同，主键名为 id 时保守排除。
func isIdentityColumn(ct gorm.ColumnType) bool {
	if auto, ok := ct.AutoIncrement(); ok && auto {
		return true
	}
	if pk, ok := ct.PrimaryKey(); ok && pk && ct.Name() == "id" {
		return true
	}
	return false
}
