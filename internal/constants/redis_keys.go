package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// EmbeddingModulePrefix 向量模块
	EmbeddingModulePrefix = "embedding"

	// EntityScore 匹配分实体
	EntityScore = "score"
	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyMatchScore 技能匹配分缓存 (STRING)
	// 格式: app:resume:score:{resumeID}:{jdMD5}
	KeyMatchScore = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityScore + ":%s:%s"

	// KeyEmbeddingVector 文本向量缓存 (STRING, JSON 数组)
	// 格式: app:embedding:vector:{model}:{textMD5}
	KeyEmbeddingVector = AppPrefix + ":" + EmbeddingModulePrefix + ":" + EntityVector + ":%s:%s"
)
