package processor

import (
	"errors"
	"fmt"

	"resume-parser-go/internal/storage"
)

// 定义基础错误类型
var (
	ErrResumeNotFound      = storage.ErrResumeNotFound
	ErrEmptyUpload         = errors.New("上传文件为空")
	ErrSaveFileFailed      = errors.New("保存原始文件失败")
	ErrStoreResumeFailed   = errors.New("保存简历失败")
	ErrLoadResumeFailed    = errors.New("读取简历失败")
	ErrEmbeddingFailed     = errors.New("向量化失败")
	ErrSearchFailed        = errors.New("检索简历失败")
	ErrEmptyQuery          = errors.New("检索关键字不能为空")
	ErrEmptyJobDescription = errors.New("岗位描述不能为空")
)

// ResumeProcessError 包含详细错误信息的自定义错误
type ResumeProcessError struct {
	ResumeID string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *ResumeProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, ID:%s): %s", e.BaseErr, e.Op, e.ResumeID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, ID:%s)", e.BaseErr, e.Op, e.ResumeID)
}

func (e *ResumeProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ResumeProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewSaveFileError(id, detail string) error {
	return &ResumeProcessError{ResumeID: id, Op: "save_file", BaseErr: ErrSaveFileFailed, Detail: detail}
}

func NewStoreError(id, detail string) error {
	return &ResumeProcessError{ResumeID: id, Op: "store", BaseErr: ErrStoreResumeFailed, Detail: detail}
}

func NewLoadError(id, detail string) error {
	return &ResumeProcessError{ResumeID: id, Op: "load", BaseErr: ErrLoadResumeFailed, Detail: detail}
}

func NewNotFoundError(id string) error {
	return &ResumeProcessError{ResumeID: id, Op: "load", BaseErr: ErrResumeNotFound}
}

func NewEmbeddingError(id, detail string) error {
	return &ResumeProcessError{ResumeID: id, Op: "embed", BaseErr: ErrEmbeddingFailed, Detail: detail}
}
