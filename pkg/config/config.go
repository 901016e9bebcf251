package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultAddr            = ":8080"
	DefaultAPIBaseURL      = "https://api.github.com"
	DefaultTimeoutSeconds  = 20
	DefaultBranchesPerPage = 100
	DefaultMaxFileSizeMB   = 20
	DefaultMaxResults      = 50
	DefaultSessionTTL      = 120
	DefaultCleanupInterval = 30
	DefaultCachePath       = "./data/blobs.db"
	DefaultPrefsPath       = "./data/prefs.json"
)

// Config 表示应用程序的配置
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"` // gin 运行模式: debug, release, test
	} `yaml:"server"`

	Github struct {
		APIBaseURL      string `yaml:"api_base_url"`
		Token           string `yaml:"token"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		BranchesPerPage int    `yaml:"branches_per_page"`
	} `yaml:"github"`

	FileLimits struct {
		MaxFileSize int64 `yaml:"max_file_size"` // 单位 MB，加载后转换为字节
	} `yaml:"file_limits"`

	Search struct {
		MaxResults int `yaml:"max_results"`
	} `yaml:"search"`

	Sessions struct {
		TTLMinutes             int `yaml:"ttl_minutes"`
		CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	} `yaml:"sessions"`

	Cache struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"cache"`

	Prefs struct {
		Path string `yaml:"path"`
	} `yaml:"prefs"`

	Logging struct {
		Level      string `yaml:"level"`       // 日志级别: debug, info, warn, error
		OutputPath string `yaml:"output_path"` // 日志输出路径
	} `yaml:"logging"`
}

// Default 返回不依赖配置文件的默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.finalize()
	return cfg
}

// LoadFile 从文件加载配置并应用环境变量
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 配置内容
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.finalize()
	return cfg, nil
}

func (c *Config) finalize() {
	// 转换大小为字节
	if c.FileLimits.MaxFileSize <= 0 {
		c.FileLimits.MaxFileSize = DefaultMaxFileSizeMB
	}
	c.FileLimits.MaxFileSize *= 1024 * 1024

	// 尝试从环境变量读取 token
	if envKey := os.Getenv("GITHUB_API_KEY"); envKey != "" {
		c.Github.Token = envKey
	} else if envKey := os.Getenv("OAUTH_TOKEN"); envKey != "" {
		c.Github.Token = envKey
	}
}

// GetAddr 返回监听地址
func (c *Config) GetAddr() string {
	if c.Server.Addr == "" {
		return DefaultAddr
	}
	return c.Server.Addr
}

// GetMode 返回 gin 运行模式
func (c *Config) GetMode() string {
	if c.Server.Mode == "" {
		return "release"
	}
	return c.Server.Mode
}

// GetAPIBaseURL 返回 GitHub API 地址，不带末尾斜杠
func (c *Config) GetAPIBaseURL() string {
	if c.Github.APIBaseURL == "" {
		return DefaultAPIBaseURL
	}
	return strings.TrimRight(c.Github.APIBaseURL, "/")
}

// GetGithubToken 返回兜底使用的 GitHub token
func (c *Config) GetGithubToken() string {
	return c.Github.Token
}

// GetTimeout 返回请求 GitHub 的超时时间
func (c *Config) GetTimeout() time.Duration {
	if c.Github.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Github.TimeoutSeconds) * time.Second
}

// GetBranchesPerPage 返回分支列表的分页大小
func (c *Config) GetBranchesPerPage() int {
	if c.Github.BranchesPerPage <= 0 || c.Github.BranchesPerPage > 100 {
		return DefaultBranchesPerPage
	}
	return c.Github.BranchesPerPage
}

// GetMaxFileSize 返回可预览文件的最大字节数
func (c *Config) GetMaxFileSize() int64 {
	return c.FileLimits.MaxFileSize
}

// GetMaxResults 返回搜索结果上限
func (c *Config) GetMaxResults() int {
	if c.Search.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return c.Search.MaxResults
}

// GetSessionTTL 返回会话的最长空闲时间
func (c *Config) GetSessionTTL() time.Duration {
	if c.Sessions.TTLMinutes <= 0 {
		return DefaultSessionTTL * time.Minute
	}
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// GetCleanupInterval 返回过期会话的清理间隔
func (c *Config) GetCleanupInterval() time.Duration {
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return DefaultCleanupInterval * time.Minute
	}
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// IsCacheEnabled 是否启用 blob 缓存
func (c *Config) IsCacheEnabled() bool {
	return c.Cache.Enabled
}

// GetCachePath 返回缓存数据库路径
func (c *Config) GetCachePath() string {
	if c.Cache.Path == "" {
		return DefaultCachePath
	}
	return c.Cache.Path
}

// GetPrefsPath 返回用户偏好文件路径
func (c *Config) GetPrefsPath() string {
	if c.Prefs.Path == "" {
		return DefaultPrefsPath
	}
	return c.Prefs.Path
}

// GetLogLevel 返回日志级别
func (c *Config) GetLogLevel() string {
	if c.Logging.Level == "" {
		return "info" // 默认日志级别
	}
	return c.Logging.Level
}

// GetLogOutputPath 返回日志输出路径
func (c *Config) GetLogOutputPath() string {
	if c.Logging.OutputPath == "" {
		return "./logs" // 默认日志目录
	}
	return c.Logging.OutputPath
}
