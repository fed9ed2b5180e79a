package parser

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/types"
)

const (
	nameScanLines      = 8
	locationScanLength = 500
)

var (
	emailRe = regexp.MustCompile(`[\w\.-]+@[\w\.-]+\.\w+`)
	phoneRe = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?(\d{10,12})`)
)

// ContactExtractor 抽取姓名、邮箱、电话和所在地
// 姓名和地点依赖实体识别, 未配置识别器时为空
type ContactExtractor struct {
	ner    EntityRecognizer
	logger zerolog.Logger
}

// ContactOption 联系方式抽取器选项
type ContactOption func(*ContactExtractor)

// WithEntityRecognizer 设置实体识别器
func WithEntityRecognizer(ner EntityRecognizer) ContactOption {
	return func(e *ContactExtractor) {
		e.ner = ner
	}
}

// WithContactLogger 设置日志
func WithContactLogger(logger zerolog.Logger) ContactOption {
	return func(e *ContactExtractor) {
		e.logger = logger
	}
}

// NewContactExtractor 创建联系方式抽取器
func NewContactExtractor(opts ...ContactOption) *ContactExtractor {
	e := &ContactExtractor{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 各字段取第一个匹配
func (e *ContactExtractor) Extract(text string) types.ContactFields {
	var fields types.ContactFields

	if m := emailRe.FindString(text); m != "" {
		fields.Email = &m
	}
	if m := phoneRe.FindString(text); m != "" {
		fields.Phone = &m
	}

	if e.ner == nil {
		return fields
	}

	lines := nonEmptyLines(text)
	if len(lines) > nameScanLines {
		lines = lines[:nameScanLines]
	}
	fields.FullName = e.firstEntity(strings.Join(lines, "\n"), EntityPerson)
	fields.Location = e.firstEntity(firstRunes(text, locationScanLength), EntityGPE, EntityLocation)
	return fields
}

func (e *ContactExtractor) firstEntity(text string, labels ...string) *string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ents, err := e.ner.Entities(text)
	if err != nil {
		e.logger.Warn().Err(err).Msg("实体识别失败, 跳过姓名/地点")
		return nil
	}
	for _, ent := range ents {
		for _, l := range labels {
			if ent.Label == l {
				v := ent.Text
				return &v
			}
		}
	}
	return nil
}
