package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resume-parser-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// FileStore 原始上传文件存储
type FileStore interface {
	// SaveResumeFile 保存原始文件, 返回可用于读取的路径或对象键
	SaveResumeFile(ctx context.Context, resumeID, filename string, data []byte) (string, error)

	// GetResumeFile 读取 SaveResumeFile 返回的路径
	GetResumeFile(ctx context.Context, path string) ([]byte, error)
}

var _ FileStore = (*MinIO)(nil)

// MinIO 对象存储
type MinIO struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO bucketName 不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.BucketName, logger: logger}
	if err := m.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	m.logger.Info().Str("bucket", m.bucket).Msg("存储桶已创建")
	return nil
}

// ResumeObjectKey 原始文件对象键, 例如 resume/{id}/original.pdf
func ResumeObjectKey(resumeID, filename string) string {
	return fmt.Sprintf("resume/%s/original%s", resumeID, strings.ToLower(filepath.Ext(filename)))
}

// SaveResumeFile 上传原始简历, 返回对象键
func (m *MinIO) SaveResumeFile(ctx context.Context, resumeID, filename string, data []byte) (string, error) {
	objectName := ResumeObjectKey(resumeID, filename)
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentTypeFor(filename)})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	m.logger.Debug().Str("object", objectName).Int("size", len(data)).Msg("原始简历已上传")
	return objectName, nil
}

// GetResumeFile 下载对象
func (m *MinIO) GetResumeFile(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectName, err)
	}
	return data, nil
}

// ContentTypeFor 按扩展名推断 MIME 类型
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
