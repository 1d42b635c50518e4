package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPath 是未设置 NOVA_CONFIG 时使用的配置文件。
const DefaultPath = "configs/nova.json"

// Config 描述了 Nova 在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Chains    ChainsConfig    `json:"chains"`
	Guardian  GuardianConfig  `json:"guardian"`
	Gas       GasConfig       `json:"gas"`
	Cache     CacheConfig     `json:"cache"`
	Storage   StorageConfig   `json:"storage"`
	Events    EventsConfig    `json:"events"`
	LLM       LLMConfig       `json:"llm"`
	Slippage  SlippageConfig  `json:"slippage"`
	Agent     AgentConfig     `json:"agent"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Alerting  AlertingConfig  `json:"alerting"`
	Runtime   RuntimeConfig   `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address                string `json:"address"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
}

// ShutdownTimeout 返回优雅关闭的等待时间。
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig 对应 pkg/logger 的参数。
type LoggingConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 描述审计日志文件及其轮转策略。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// MetricsConfig 控制 Prometheus 指标暴露。
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ChainsConfig 描述链目录来源以及 RPC 覆盖。
type ChainsConfig struct {
	// CatalogPath 为空时使用内置目录。
	CatalogPath  string            `json:"catalog_path"`
	RPCOverrides map[string]string `json:"rpc_overrides"`
}

// RPCMap 将 JSON 中的字符串键转换为链 ID。
func (c ChainsConfig) RPCMap() (map[int64]string, error) {
	out := make(map[int64]string, len(c.RPCOverrides))
	for k, v := range c.RPCOverrides {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("无效的链 ID %q: %w", k, err)
		}
		out[id] = v
	}
	return out, nil
}

// GuardianConfig 覆盖校验阈值，零值表示使用默认值。
type GuardianConfig struct {
	GasBuffer         float64 `json:"gas_buffer"`
	LowRemainder      float64 `json:"low_remainder"`
	LargeNativeAmount float64 `json:"large_native_amount"`
}

// GasConfig 选择 gas 估算方式。
type GasConfig struct {
	// Mode 取值 static 或 rpc。
	Mode     string             `json:"mode"`
	Default  float64            `json:"default"`
	PerChain map[string]float64 `json:"per_chain"`
}

// PerChainMap 将 JSON 中的字符串键转换为链 ID。
func (g GasConfig) PerChainMap() (map[int64]float64, error) {
	out := make(map[int64]float64, len(g.PerChain))
	for k, v := range g.PerChain {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("无效的链 ID %q: %w", k, err)
		}
		out[id] = v
	}
	return out, nil
}

// CacheConfig 控制余额缓存。
type CacheConfig struct {
	Disabled          bool `json:"disabled"`
	BalanceTTLSeconds int  `json:"balance_ttl_seconds"`
}

// BalanceTTL 返回余额缓存时长。
func (c CacheConfig) BalanceTTL() time.Duration {
	return time.Duration(c.BalanceTTLSeconds) * time.Second
}

// StorageConfig 统一描述会话与审计存储。
type StorageConfig struct {
	Conversation ConversationStoreConfig `json:"conversation"`
	Audit        AuditStoreConfig        `json:"audit"`
}

// ConversationStoreConfig 选择会话存储，driver 取值 memory 或 redis。
type ConversationStoreConfig struct {
	Driver     string      `json:"driver"`
	MaxTurns   int         `json:"max_turns"`
	TTLSeconds int         `json:"ttl_seconds"`
	Redis      RedisConfig `json:"redis"`
}

// RedisConfig 是通用的 Redis 连接参数。
type RedisConfig struct {
	Address     string `json:"address"`
	Password    string `json:"password"`
	PasswordEnv string `json:"password_env"`
	DB          int    `json:"db"`
	KeyPrefix   string `json:"key_prefix"`
	Queue       string `json:"queue"`
	BlockWait   int    `json:"block_wait_seconds"`
}

// AuditStoreConfig 选择预览审计仓库，driver 取值 memory 或 mysql。
type AuditStoreConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	DSNEnv                 string `json:"dsn_env"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds"`
}

// EventsConfig 选择预览事件的发布通道。
type EventsConfig struct {
	Driver   string         `json:"driver"`
	Buffer   int            `json:"buffer"`
	Workers  int            `json:"workers"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
	NATS     NATSConfig     `json:"nats"`
}

// RabbitMQConfig 描述 RabbitMQ 连接。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	URLEnv     string `json:"url_env"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// NATSConfig 描述 NATS 连接。
type NATSConfig struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// LLMConfig 选择对话后端，provider 取值 none、openai 或 anthropic。
type LLMConfig struct {
	Provider  string          `json:"provider"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Anthropic AnthropicConfig `json:"anthropic"`
}

// OpenAIConfig 描述 OpenAI 兼容接口。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回请求超时时间。
func (o OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// AnthropicConfig 描述 Anthropic Messages API。
type AnthropicConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	MaxTokens      int64  `json:"max_tokens"`
	MaxRetries     int    `json:"max_retries"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回请求超时时间。
func (a AnthropicConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SlippageConfig 描述滑点预测服务，BaseURL 为空时不启用。
type SlippageConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回请求超时时间。
func (s SlippageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// AgentConfig 控制对话处理。
type AgentConfig struct {
	HistoryWindow        int `json:"history_window"`
	LLMTimeoutSeconds    int `json:"llm_timeout_seconds"`
	LookupTimeoutSeconds int `json:"lookup_timeout_seconds"`
}

// KnowledgeConfig 控制交给对话后端的知识库。Source 为空时使用内置条目。
type KnowledgeConfig struct {
	Disabled   bool   `json:"disabled"`
	Source     string `json:"source"`
	MaxResults int    `json:"max_results"`
}

// AlertingConfig 描述服务端错误的告警渠道。
type AlertingConfig struct {
	Log      bool           `json:"log"`
	Slack    WebhookChannel `json:"slack"`
	DingTalk WebhookChannel `json:"dingtalk"`
}

// WebhookChannel 是一个机器人 webhook 渠道。
type WebhookChannel struct {
	WebhookURL    string `json:"webhook_url"`
	WebhookURLEnv string `json:"webhook_url_env"`
	Channel       string `json:"channel"`
}

// Enabled 判断是否配置了任意告警渠道。
func (a AlertingConfig) Enabled() bool {
	return a.Log || a.Slack.WebhookURL != "" || a.DingTalk.WebhookURL != ""
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// LoadFromEnv 加载 .env 后读取 NOVA_CONFIG 指向的配置文件。
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}
	path := strings.TrimSpace(os.Getenv("NOVA_CONFIG"))
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.resolveSecrets()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = "logs/audit.log"
	}
	c.Logging.Audit.Path = resolvePath(baseDir, c.Logging.Audit.Path)

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	c.Chains.CatalogPath = resolvePath(baseDir, c.Chains.CatalogPath)

	c.Gas.Mode = strings.ToLower(strings.TrimSpace(c.Gas.Mode))
	if c.Gas.Mode == "" {
		c.Gas.Mode = "static"
	}

	if c.Cache.BalanceTTLSeconds <= 0 {
		c.Cache.BalanceTTLSeconds = 15
	}

	if c.Storage.Conversation.Driver == "" {
		c.Storage.Conversation.Driver = "memory"
	}
	if c.Storage.Audit.Driver == "" {
		c.Storage.Audit.Driver = "memory"
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Workers <= 0 {
		c.Events.Workers = 1
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "none"
	}
	if c.LLM.OpenAI.APIKeyEnv == "" {
		c.LLM.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.LLM.Anthropic.APIKeyEnv == "" {
		c.LLM.Anthropic.APIKeyEnv = "ANTHROPIC_API_KEY"
	}

	if c.Slippage.TimeoutSeconds <= 0 {
		c.Slippage.TimeoutSeconds = 15
	}

	if c.Agent.HistoryWindow <= 0 {
		c.Agent.HistoryWindow = 6
	}
	if c.Agent.LLMTimeoutSeconds <= 0 {
		c.Agent.LLMTimeoutSeconds = 30
	}
	if c.Agent.LookupTimeoutSeconds <= 0 {
		c.Agent.LookupTimeoutSeconds = 10
	}

	if c.Knowledge.MaxResults <= 0 {
		c.Knowledge.MaxResults = 3
	}
	c.Knowledge.Source = resolvePath(baseDir, c.Knowledge.Source)

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else {
		c.Runtime.DataDir = resolvePath(baseDir, c.Runtime.DataDir)
	}
}

// resolveSecrets 用 *_env 指向的环境变量补全未直接填写的密钥。
func (c *Config) resolveSecrets() {
	c.LLM.OpenAI.APIKey = fromEnv(c.LLM.OpenAI.APIKey, c.LLM.OpenAI.APIKeyEnv)
	c.LLM.Anthropic.APIKey = fromEnv(c.LLM.Anthropic.APIKey, c.LLM.Anthropic.APIKeyEnv)
	c.Storage.Audit.DSN = fromEnv(c.Storage.Audit.DSN, c.Storage.Audit.DSNEnv)
	c.Alerting.Slack.WebhookURL = fromEnv(c.Alerting.Slack.WebhookURL, c.Alerting.Slack.WebhookURLEnv)
	c.Alerting.DingTalk.WebhookURL = fromEnv(c.Alerting.DingTalk.WebhookURL, c.Alerting.DingTalk.WebhookURLEnv)
	c.Storage.Conversation.Redis.Password = fromEnv(c.Storage.Conversation.Redis.Password, c.Storage.Conversation.Redis.PasswordEnv)
	c.Events.Redis.Password = fromEnv(c.Events.Redis.Password, c.Events.Redis.PasswordEnv)
	c.Events.RabbitMQ.URL = fromEnv(c.Events.RabbitMQ.URL, c.Events.RabbitMQ.URLEnv)
}

func (c *Config) validate() error {
	if !oneOf(c.Gas.Mode, "static", "rpc") {
		return fmt.Errorf("未知的 gas 模式: %s", c.Gas.Mode)
	}
	if !oneOf(c.Storage.Conversation.Driver, "memory", "redis") {
		return fmt.Errorf("未知的会话存储驱动: %s", c.Storage.Conversation.Driver)
	}
	if !oneOf(c.Storage.Audit.Driver, "memory", "mysql") {
		return fmt.Errorf("未知的审计存储驱动: %s", c.Storage.Audit.Driver)
	}
	if c.Storage.Audit.Driver == "mysql" && c.Storage.Audit.DSN == "" {
		return errors.New("mysql 审计存储需要配置 dsn 或 dsn_env")
	}
	if !oneOf(c.LLM.Provider, "none", "openai", "anthropic") {
		return fmt.Errorf("未知的大模型 provider: %s", c.LLM.Provider)
	}
	if _, err := c.Chains.RPCMap(); err != nil {
		return err
	}
	if _, err := c.Gas.PerChainMap(); err != nil {
		return err
	}
	return nil
}

func fromEnv(value, envKey string) string {
	value = strings.TrimSpace(value)
	if value != "" || envKey == "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(envKey))
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func oneOf(value string, options ...string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}
