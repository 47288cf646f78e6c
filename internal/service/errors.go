// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 暂存与审批流程的错误分类。
// 解析失败（parser.ErrMalformedInput）与类别未登记（catalog.ErrUnknownCategory）
// 分别定义在各自的叶子包里。
var (
	// ErrEmptyPayload 解析成功但没有任何数据行，暂存中止，什么都不落库。
	ErrEmptyPayload = errors.New("empty payload")
	// ErrUnresolvedForeignKey 期别/子类别/主类别链条缺失，暂存硬失败。
	ErrUnresolvedForeignKey = errors.New("unresolved foreign key")
	// ErrUnresolvedSchema 暂存时存在的映射在审批时消失了（例如表被改名），
	// 审批在触碰任何行之前整体失败。
	ErrUnresolvedSchema = errors.New("unresolved schema")
	// ErrAlreadyDecided 对非 PENDING 制品做出决定，属于调用方错误。
	ErrAlreadyDecided = errors.New("artifact already decided")
	// ErrInsertFailed 提交事务中某一行插入失败（约束冲突、类型不符），
	// 整个事务回滚，制品保持 PENDING 可重试。
	ErrInsertFailed = errors.New("insert failed")
	// ErrArtifactNotFound 制品不存在。
	ErrArtifactNotFound = errors.New("artifact not found")
)
