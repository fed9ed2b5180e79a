package constants

const (
	// EventResumeParsed 简历解析完成事件
	EventResumeParsed = "resume.parsed"

	// 发件箱消息状态
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"

	// StatusCompleted 上传接口返回的处理状态
	StatusCompleted = "completed"
)
