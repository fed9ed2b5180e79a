package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644), "无法写入临时配置文件")
	return configPath
}

// TestLoadConfigFromFile 验证 YAML 中的值能被正确加载
func TestLoadConfigFromFile(t *testing.T) {
	configPath := writeTempConfig(t, `
server:
  address: ":9090"
  api_key: "secret"
llm:
  model: "gpt-4o-mini"
  refine_timeout: "5s"
parser:
  skills: ["go", "rust"]
mysql:
  host: "db"
  database: "resumes"
`)

	cfg, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err, "加载配置不应返回错误")
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.RefineTimeout())
	assert.Equal(t, []string{"go", "rust"}, cfg.Parser.Skills)
	assert.True(t, cfg.MySQLEnabled())
	assert.Equal(t, 3306, cfg.MySQL.Port, "未配置端口时应使用默认端口")
}

// TestLoadConfigDefaults 验证空配置文件时的默认值
func TestLoadConfigDefaults(t *testing.T) {
	configPath := writeTempConfig(t, "")

	cfg, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, DefaultAPIKey, cfg.Server.APIKey)
	assert.Equal(t, DefaultUploadDir, cfg.Server.UploadDir)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.Equal(t, DefaultLLMMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Embedding.Model)
	assert.Equal(t, cfg.LLM.BaseURL, cfg.Embedding.BaseURL, "embedding base_url 应沿用 LLM base_url")
	assert.Equal(t, DefaultSkills, cfg.Parser.Skills)
	assert.Equal(t, DefaultRefineTimeout, cfg.RefineTimeout())
	assert.False(t, cfg.MySQLEnabled())
	assert.False(t, cfg.LLMEnabled())
	assert.False(t, cfg.Parser.DisableNER, "默认启用实体识别")
}

// TestLoadConfigDisableNER 验证可以关闭实体识别
func TestLoadConfigDisableNER(t *testing.T) {
	configPath := writeTempConfig(t, `
parser:
  disable_ner: true
tika:
  server_url: "http://tika:9998"
  timeout_seconds: 30
rabbitmq:
  events_exchange: "cv.events"
  parsed_routing_key: "cv.parsed"
`)

	cfg, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err)
	assert.True(t, cfg.Parser.DisableNER)
	assert.Equal(t, 30, cfg.Tika.Timeout)
	assert.Equal(t, "cv.events", cfg.RabbitMQ.EventsExchange)
	assert.Equal(t, "cv.parsed", cfg.RabbitMQ.ParsedRoutingKey)
}

// TestLoadConfigEnvOverrides 验证环境变量覆盖文件配置
func TestLoadConfigEnvOverrides(t *testing.T) {
	configPath := writeTempConfig(t, `
llm:
  api_key: "from-file"
server:
  api_key: "file-key"
`)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("API_KEY", "env-key")
	t.Setenv("MYSQL_PORT", "3307")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "env-key", cfg.Server.APIKey)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.True(t, cfg.LLMEnabled())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFromFileOnly(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "显式指定的配置文件不存在时应返回错误")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := writeTempConfig(t, "server: [unclosed")
	_, err := LoadConfigFromFileOnly(configPath)
	assert.Error(t, err)
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, CreateSampleConfig(path))

	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)

	assert.Error(t, CreateSampleConfig(path), "已存在的文件不应被覆盖")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration("2s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("bogus", time.Minute))
}
