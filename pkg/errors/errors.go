package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 写入全量行状态时版本号不匹配即返回该错误，调用方应重新拉取快照后重试
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
