// Package parser 负责把上传的表格文件解析为扁平的记录序列。
// 解析器不了解任何表结构知识：表头行定义字段名，每行是字段名到单元格文本的映射。
// 记录集是否有效（空文件、未知类别等）由后续的解析/审批环节判断。
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FileKind 标识上传文件的声明类型。
type FileKind string

const (
	// KindCSV 分隔文本：逐行流式解析，内存占用与行宽成正比。
	KindCSV FileKind = "csv"
	// KindXLSX 电子表格：excelize 的文档模型要求整份读入。
	KindXLSX FileKind = "xlsx"
)

// ErrMalformedInput 表示字节流无法按声明的类型解码。
var ErrMalformedInput = errors.New("malformed input")

// Record 是一行数据：表头字段名 → 单元格文本。
type Record map[string]string

// Table 是一次解析的产物：有序表头 + 有序行序列。
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Record `json:"rows"`
}

// KindFromFilename 根据文件扩展名推断文件类型。
func KindFromFilename(name string) (FileKind, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return KindCSV, nil
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return KindXLSX, nil
	default:
		return "", fmt.Errorf("%w: 不支持的文件类型 %q", ErrMalformedInput, name)
	}
}

// Parse 解析字节流并产出记录集。
// 零数据行不是错误；重复表头未定义行为，后值覆盖前值。
func Parse(r io.Reader, kind FileKind) (*Table, error) {
	switch kind {
	case KindCSV:
		return parseCSV(r)
	case KindXLSX:
		return parseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: 未知文件类型 %q", ErrMalformedInput, kind)
	}
}

// parseCSV 逐行流式解析分隔文本。
func parseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	// 行宽不强制与表头一致：短行补空，长行多余单元格丢弃
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return &Table{Headers: []string{}, Rows: []Record{}}, nil
		}
		return nil, fmt.Errorf("%w: 读取表头失败: %v", ErrMalformedInput, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	table := &Table{Headers: headers, Rows: make([]Record, 0)}
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行解析失败: %v", ErrMalformedInput, len(table.Rows)+2, err)
		}
		rec := cellsToRecord(headers, cells)
		if rec == nil {
			continue // 整行为空，跳过
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// parseXLSX 整份读入电子表格，取第一个工作表，首行为表头。
func parseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开电子表格失败: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: 电子表格不含任何工作表", ErrMalformedInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表 %q 失败: %v", ErrMalformedInput, sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{Headers: []string{}, Rows: []Record{}}, nil
	}

	headers := rows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	table := &Table{Headers: headers, Rows: make([]Record, 0, len(rows)-1)}
	for _, cells := range rows[1:] {
		rec := cellsToRecord(headers, cells)
		if rec == nil {
			continue
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// cellsToRecord 把一行单元格按表头组装成记录。整行为空返回 nil。
func cellsToRecord(headers []string, cells []string) Record {
	rec := make(Record, len(headers))
	empty := true
	for i, h := range headers {
		if h == "" {
			continue
		}
		var v string
		if i < len(cells) {
			v = strings.TrimSpace(cells[i])
		}
		// 重复表头后值覆盖前值（未定义行为，保持简单）
		rec[h] = v
		if v != "" {
			empty = false
		}
	}
	if empty {
		return nil
	}
	return rec
}
