// Package catalog 维护类别目录：每个类别标识到目标表与列映射的解析。
// 监测与改善类别的测量列是人工整理、无法从数据库形状推断的
// （例如 day1st_result 与 day1st_Leq 的语义区分），因此在这里集中枚举一次；
// 参照表形状简单，列清单交由 SchemaResolver 在运行时内省。
package catalog

import (
	"errors"
	"fmt"

	"envportal-go/internal/model"
)

// ErrUnknownCategory 表示目录中没有该类别标识。
var ErrUnknownCategory = errors.New("unknown category")

// CategorySchema 是一个类别的解析结果：目标表 + 外部字段到列名的字典。
// 每个类别标识恰好对应一张目标表和一份（可能为空的）字典；实例不可变。
type CategorySchema struct {
	Kind        string
	ID          string
	TargetTable string
	// FieldColumns 外部字段 → 目标列。参照表类别此字典为空，列清单运行时解析。
	FieldColumns map[string]string
}

// Catalog 是进程启动时构建一次的静态目录，之后只读。
type Catalog struct {
	monitoring  map[string]*CategorySchema
	enhancement map[string]*CategorySchema
	reference   map[string]*CategorySchema
}

// relationalFields 是每份监测/改善字典都隐含携带的关系列。
var relationalFields = map[string]string{
	"station_id": "station_id",
	"company_id": "company_id",
	"reportBy":   "report_by",
}

// IsRelationalField 判断一个字段是否为隐含的关系列。
// 只携带关系列、没有任何测量值的行不构成一条有效记录。
func IsRelationalField(field string) bool {
	_, ok := relationalFields[field]
	return ok
}

// monitoringTables 枚举 15 个监测子类：目标表 + 测量列字典。
var monitoringTables = map[string]struct {
	table  string
	fields map[string]string
}{
	"SO2": {"Env_Wind_SO2", map[string]string{
		"day1st_result_ppm": "day1st_result_ppm",
		"day2nd_result_ppm": "day2nd_result_ppm",
		"day3rd_result_ppm": "day3rd_result_ppm",
	}},
	"NO2": {"Env_Wind_NO2", map[string]string{
		"day1st_result_ppm": "day1st_result_ppm",
		"day2nd_result_ppm": "day2nd_result_ppm",
		"day3rd_result_ppm": "day3rd_result_ppm",
	}},
	"CO": {"Env_Wind_CO", map[string]string{
		"day1st_result_ppm": "day1st_result_ppm",
		"day2nd_result_ppm": "day2nd_result_ppm",
	}},
	"O3": {"Env_Wind_O3", map[string]string{
		"day1st_result_ppm": "day1st_result_ppm",
		"day2nd_result_ppm": "day2nd_result_ppm",
	}},
	"TSP": {"Env_Dust_TSP", map[string]string{
		"day1st_result": "day1st_result",
		"day2nd_result": "day2nd_result",
		"day3rd_result": "day3rd_result",
	}},
	"PM10": {"Env_Dust_PM10", map[string]string{
		"day1st_result": "day1st_result",
		"day2nd_result": "day2nd_result",
	}},
	"PM25": {"Env_Dust_PM25", map[string]string{
		"day1st_result": "day1st_result",
		"day2nd_result": "day2nd_result",
	}},
	"DayNoise": {"Env_Noise_Day", map[string]string{
		"day1st_Leq": "day1st_Leq",
		"day1st_L10": "day1st_L10",
		"day1st_L90": "day1st_L90",
	}},
	"NightNoise": {"Env_Noise_Night", map[string]string{
		"night1st_Leq": "night1st_Leq",
		"night1st_L10": "night1st_L10",
		"night1st_L90": "night1st_L90",
	}},
	"Vibration": {"Env_Vibration", map[string]string{
		"day1st_VL10":   "day1st_VL10",
		"night1st_VL10": "night1st_VL10",
	}},
	"WindSpeed": {"Env_Wind_Speed", map[string]string{
		"avg_speed_ms": "avg_speed_ms",
		"max_speed_ms": "max_speed_ms",
	}},
	"WindDirection": {"Env_Wind_Direction", map[string]string{
		"main_direction": "main_direction",
		"frequency_pct":  "frequency_pct",
	}},
	"SeaWater": {"Env_Water_Sea", map[string]string{
		"ph_value": "ph_value",
		"ss_mgl":   "ss_mgl",
		"do_mgl":   "do_mgl",
	}},
	"GroundWater": {"Env_Water_Ground", map[string]string{
		"ph_value":  "ph_value",
		"ss_mgl":    "ss_mgl",
		"depth_m":   "depth_m",
		"turbidity": "turbidity",
	}},
	"Effluent": {"Env_Water_Effluent", map[string]string{
		"ph_value": "ph_value",
		"cod_mgl":  "cod_mgl",
		"bod_mgl":  "bod_mgl",
	}},
}

// enhancementTables 枚举 10 个环境改善子表。
var enhancementTables = map[string]struct {
	table  string
	fields map[string]string
}{
	"TreePlanting": {"Enh_Tree_Planting", map[string]string{
		"species":  "species",
		"quantity": "quantity",
		"area_m2":  "area_m2",
	}},
	"GreenRoof": {"Enh_Green_Roof", map[string]string{
		"area_m2":    "area_m2",
		"plant_type": "plant_type",
	}},
	"NoiseBarrier": {"Enh_Noise_Barrier", map[string]string{
		"length_m":     "length_m",
		"height_m":     "height_m",
		"material":     "material",
		"reduction_db": "reduction_db",
	}},
	"SilentPiling": {"Enh_Silent_Piling", map[string]string{
		"method":     "method",
		"pile_count": "pile_count",
	}},
	"DustScreen": {"Enh_Dust_Screen", map[string]string{
		"area_m2":  "area_m2",
		"material": "material",
	}},
	"WaterRecycle": {"Enh_Water_Recycle", map[string]string{
		"volume_m3":   "volume_m3",
		"recycle_pct": "recycle_pct",
	}},
	"SolarPanel": {"Enh_Solar_Panel", map[string]string{
		"capacity_kw": "capacity_kw",
		"panel_count": "panel_count",
	}},
	"WasteSorting": {"Enh_Waste_Sorting", map[string]string{
		"waste_type": "waste_type",
		"weight_kg":  "weight_kg",
	}},
	"EcoPond": {"Enh_Eco_Pond", map[string]string{
		"area_m2":       "area_m2",
		"species_count": "species_count",
	}},
	"LowCarbon": {"Enh_Low_Carbon", map[string]string{
		"measure":           "measure",
		"reduction_ton_co2": "reduction_ton_co2",
	}},
}

// referenceTables 枚举 8 张低基数参照表：只登记目标表名，列清单运行时内省。
var referenceTables = map[string]string{
	"years":           model.Year{}.TableName(),
	"periods":         model.Period{}.TableName(),
	"stations":        model.Station{}.TableName(),
	"companies":       model.Company{}.TableName(),
	"main_categories": model.MainCategory{}.TableName(),
	"sub_categories":  model.SubCategory{}.TableName(),
	"units":           model.Unit{}.TableName(),
	"report_indexes":  model.ReportIndex{}.TableName(),
}

// New 构建不可变的类别目录。每份监测/改善字典都会合入隐含的关系列。
func New() *Catalog {
	c := &Catalog{
		monitoring:  make(map[string]*CategorySchema, len(monitoringTables)),
		enhancement: make(map[string]*CategorySchema, len(enhancementTables)),
		reference:   make(map[string]*CategorySchema, len(referenceTables)),
	}
	for id, def := range monitoringTables {
		c.monitoring[id] = newSchema(model.KindMonitoring, id, def.table, def.fields)
	}
	for id, def := range enhancementTables {
		c.enhancement[id] = newSchema(model.KindEnhancement, id, def.table, def.fields)
	}
	for id, table := range referenceTables {
		c.reference[id] = &CategorySchema{
			Kind:         model.KindReference,
			ID:           id,
			TargetTable:  table,
			FieldColumns: map[string]string{},
		}
	}
	return c
}

// newSchema 合并测量列与隐含关系列，构建一份类别字典。
func newSchema(kind, id, table string, fields map[string]string) *CategorySchema {
	merged := make(map[string]string, len(fields)+len(relationalFields))
	for f, col := range relationalFields {
		merged[f] = col
	}
	for f, col := range fields {
		merged[f] = col
	}
	return &CategorySchema{Kind: kind, ID: id, TargetTable: table, FieldColumns: merged}
}

// Resolve 按类别种类与标识查找目录。
func (c *Catalog) Resolve(kind, id string) (*CategorySchema, error) {
	var m map[string]*CategorySchema
	switch kind {
	case model.KindMonitoring:
		m = c.monitoring
	case model.KindEnhancement:
		m = c.enhancement
	case model.KindReference:
		m = c.reference
	default:
		return nil, fmt.Errorf("%w: 无效的类别种类 %q", ErrUnknownCategory, kind)
	}
	schema, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownCategory, kind, id)
	}
	return schema, nil
}

// List 返回某一种类下全部类别标识与目标表，供上传界面展示。
func (c *Catalog) List(kind string) []*CategorySchema {
	var m map[string]*CategorySchema
	switch kind {
	case model.KindMonitoring:
		m = c.monitoring
	case model.KindEnhancement:
		m = c.enhancement
	case model.KindReference:
		m = c.reference
	default:
		return nil
	}
	out := make([]*CategorySchema, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
