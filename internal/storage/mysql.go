package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("resume-parser-go/storage/mysql")

type spanCtxKey struct{}

// GormTracingPlugin 为 GORM 的增删改查注册 OpenTelemetry 回调
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	type hook struct {
		register func(name string, fn func(*gorm.DB)) error
		name     string
		fn       func(*gorm.DB)
	}
	hooks := []hook{
		{cb.Create().Before("gorm:create").Register, "otel:before_create", p.before("INSERT")},
		{cb.Create().After("gorm:create").Register, "otel:after_create", p.after()},
		{cb.Query().Before("gorm:query").Register, "otel:before_query", p.before("SELECT")},
		{cb.Query().After("gorm:query").Register, "otel:after_query", p.after()},
		{cb.Update().Before("gorm:update").Register, "otel:before_update", p.before("UPDATE")},
		{cb.Update().After("gorm:update").Register, "otel:after_update", p.after()},
		{cb.Delete().Before("gorm:delete").Register, "otel:before_delete", p.before("DELETE")},
		{cb.Delete().After("gorm:delete").Register, "otel:after_delete", p.after()},
		{cb.Raw().Before("gorm:raw").Register, "otel:before_raw", p.before("RAW")},
		{cb.Raw().After("gorm:raw").Register, "otel:after_raw", p.after()},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}
		if sql := db.Statement.SQL.String(); sql != "" {
			opts = append(opts, trace.WithAttributes(attribute.String("db.statement", tracing.SafeSQL(sql))))
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName), opts...)
		db.Statement.Context = context.WithValue(newCtx, spanCtxKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(spanCtxKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查询不到属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// OutboxTarget 解析完成事件的投递目标, Exchange 为空时不写发件箱
type OutboxTarget struct {
	Exchange   string
	RoutingKey string
}

// MySQL 基于 GORM 的简历存储
type MySQL struct {
	db     *gorm.DB
	cfg    *config.MySQLConfig
	outbox OutboxTarget
}

var _ ResumeStore = (*MySQL)(nil)

// NewMySQL 连接数据库并迁移表结构
func NewMySQL(cfg *config.MySQLConfig, outbox OutboxTarget) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	timeout := cfg.ConnectTimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, timeout)

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}
	return newMySQLWithDB(db, cfg, outbox)
}

func newMySQLWithDB(db *gorm.DB, cfg *config.MySQLConfig, outbox OutboxTarget) (*MySQL, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg, outbox: outbox}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}
	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

func gormLogLevel(level int) logger.LogLevel {
	switch level {
	case 1:
		return logger.Silent
	case 2:
		return logger.Error
	case 3:
		return logger.Warn
	case 4:
		return logger.Info
	default:
		return logger.Error
	}
}

func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(logger.Silent)})
	if err := silentDB.AutoMigrate(&models.Resume{}, &models.OutboxMessage{}); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// resumeParsedEvent 发件箱消息体
type resumeParsedEvent struct {
	ResumeID string    `json:"resume_id"`
	Filename string    `json:"filename"`
	Skills   []string  `json:"skills"`
	ParsedAt time.Time `json:"parsed_at"`
}

// Put 在一个事务中 upsert 简历并写入发件箱
func (m *MySQL) Put(ctx context.Context, resume *StoredResume) error {
	if resume == nil || resume.ID == "" {
		return fmt.Errorf("简历 id 不能为空")
	}

	ctx, span := mysqlTracer.Start(ctx, "MySQL.PutResume", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("resume_id", resume.ID),
	)

	parsedJSON, err := json.Marshal(resume.Parsed)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("序列化简历失败: %w", err)
	}

	row := models.Resume{
		ID:         resume.ID,
		Filename:   resume.Filename,
		Path:       resume.Path,
		RawText:    resume.RawText,
		ParsedJSON: datatypes.JSON(parsedJSON),
	}
	if !resume.CreatedAt.IsZero() {
		row.CreatedAt = resume.CreatedAt
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"filename", "path", "raw_text", "parsed_json", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("写入简历失败: %w", err)
		}

		if m.outbox.Exchange == "" {
			return nil
		}
		entry, err := m.newParsedOutboxEntry(resume)
		if err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("插入outbox记录失败: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (m *MySQL) newParsedOutboxEntry(resume *StoredResume) (*models.OutboxMessage, error) {
	var skills []string
	if resume.Parsed != nil {
		skills = types.SkillNames(resume.Parsed.Skills)
	}
	payload, err := json.Marshal(resumeParsedEvent{
		ResumeID: resume.ID,
		Filename: resume.Filename,
		Skills:   skills,
		ParsedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("序列化outbox payload失败: %w", err)
	}
	return &models.OutboxMessage{
		ID:               uuid.NewString(),
		AggregateID:      resume.ID,
		EventType:        constants.EventResumeParsed,
		Payload:          string(payload),
		TargetExchange:   m.outbox.Exchange,
		TargetRoutingKey: m.outbox.RoutingKey,
		Status:           constants.OutboxStatusPending,
	}, nil
}

// Get 读取并反序列化 parsed_json
func (m *MySQL) Get(ctx context.Context, id string) (*StoredResume, error) {
	var row models.Resume
	err := m.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResumeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询简历失败: %w", err)
	}

	out := &StoredResume{
		ID:        row.ID,
		Filename:  row.Filename,
		Path:      row.Path,
		RawText:   row.RawText,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.ParsedJSON) > 0 {
		var parsed types.StructuredResume
		if err := json.Unmarshal(row.ParsedJSON, &parsed); err != nil {
			return nil, fmt.Errorf("解析简历 %s 的 parsed_json 失败: %w", id, err)
		}
		out.Parsed = &parsed
	}
	return out, nil
}

// SearchByText raw_text 不区分大小写的子串检索, 按创建时间倒序
func (m *MySQL) SearchByText(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	var rows []models.Resume
	err := m.db.WithContext(ctx).
		Select("id", "filename").
		Where("LOWER(raw_text) LIKE ?", containsPattern(query)).
		Order("created_at desc").
		Order("id asc").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("检索简历失败: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, types.SearchHit{ID: r.ID, Filename: r.Filename})
	}
	return hits, nil
}

// containsPattern 小写并转义后的 %query% 模式
func containsPattern(query string) string {
	return "%" + escapeLike(strings.ToLower(query)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
