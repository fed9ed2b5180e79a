package processor

import (
	"time"

	"resume-parser-go/internal/storage"

	"github.com/rs/zerolog"
)

// Components 聚合服务依赖的功能组件, 便于测试替换
type Components struct {
	TextExtractor TextExtractor
	Assembler     *ResumeAssembler
	Store         storage.ResumeStore
	Files         storage.FileStore

	// 可选
	ScoreCache ScoreCache
	Embeddings EmbeddingProvider
}

// Settings 纯配置项
type Settings struct {
	ParserVersion string
	Logger        zerolog.Logger
	IDGenerator   func() (string, error)
}

// SettingOpt 设置选项类型, 仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// WithParserVersion 写入 metadata.parser_version
func WithParserVersion(v string) SettingOpt {
	return func(s *Settings) {
		s.ParserVersion = v
	}
}

// WithServiceLogger 设置日志记录器
func WithServiceLogger(logger zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithIDGenerator 替换简历 id 生成方式
func WithIDGenerator(gen func() (string, error)) SettingOpt {
	return func(s *Settings) {
		if gen != nil {
			s.IDGenerator = gen
		}
	}
}

// AssemblerOpt 组装器选项
type AssemblerOpt func(*ResumeAssembler)

// WithContactExtractor 替换联系方式抽取器
func WithContactExtractor(e ContactExtractor) AssemblerOpt {
	return func(a *ResumeAssembler) {
		if e != nil {
			a.contact = e
		}
	}
}

// WithSkillExtractor 替换技能抽取器
func WithSkillExtractor(e SkillExtractor) AssemblerOpt {
	return func(a *ResumeAssembler) {
		if e != nil {
			a.skills = e
		}
	}
}

// WithRefiner 启用模型精炼, timeout <= 0 时使用默认值
func WithRefiner(r Refiner, timeout time.Duration) AssemblerOpt {
	return func(a *ResumeAssembler) {
		a.refiner = r
		if timeout > 0 {
			a.refineTimeout = timeout
		}
	}
}

// WithAssemblerLogger 设置日志
func WithAssemblerLogger(logger zerolog.Logger) AssemblerOpt {
	return func(a *ResumeAssembler) {
		a.logger = logger
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) AssemblerOpt {
	return func(a *ResumeAssembler) {
		if now != nil {
			a.now = now
		}
	}
}
