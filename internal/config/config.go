package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/palemoky/shswrite/internal/game/role"
)

// EnvPrefix 环境变量前缀，例如 SHSWRITE_SERVER_PORT
const EnvPrefix = "SHSWRITE"

// 默认值
const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 1780
	defaultMaxConnections  = 1000
	defaultShutdownTimeout = 10 // 秒
	defaultStatsInterval   = 60 // 秒

	defaultLogLevel  = "info"
	defaultLogFormat = "console"

	defaultRedisAddr      = "localhost:6379"
	defaultRedisKeyPrefix = "shswrite:"

	defaultNATSURL           = "nats://127.0.0.1:4222"
	defaultNATSSubjectPrefix = "shswrite"
	defaultNATSReconnectWait = 2 // 秒

	defaultMaxNicknameLength = 24

	defaultRateMaxPerSecond    = 10
	defaultRateMaxPerMinute    = 60
	defaultBanDuration         = 60 // 秒
	defaultMessageMaxPerSecond = 60
	defaultCommandsPerSecond   = 30
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	PublicURL       string `yaml:"public_url"`       // 二维码中的加入地址，为空时按请求推断
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // 秒
	StatsInterval   int    `yaml:"stats_interval"`   // 秒，0 表示关闭统计日志
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ShutdownTimeoutDuration 返回停机超时时长
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// StatsIntervalDuration 返回统计日志间隔
func (c *ServerConfig) StatsIntervalDuration() time.Duration {
	return time.Duration(c.StatsInterval) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console 或 json
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	RoundTTL  int    `yaml:"round_ttl"` // 小时，0 表示永久保存
}

// RoundTTLDuration 返回对局记录保存时长
func (c *RedisConfig) RoundTTLDuration() time.Duration {
	return time.Duration(c.RoundTTL) * time.Hour
}

// NATSConfig NATS 配置
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	MaxReconnects int    `yaml:"max_reconnects"` // -1 表示无限
	ReconnectWait int    `yaml:"reconnect_wait"` // 秒
}

// ReconnectWaitDuration 返回重连间隔
func (c *NATSConfig) ReconnectWaitDuration() time.Duration {
	return time.Duration(c.ReconnectWait) * time.Second
}

// GameConfig 游戏配置
type GameConfig struct {
	Phrases           []string `yaml:"phrases"`       // 为空时使用内置文本
	TypistRoles       []string `yaml:"typist_roles"`  // 可以打字的角色
	StarterRoles      []string `yaml:"starter_roles"` // 可以开始游戏的角色
	MaxNicknameLength int      `yaml:"max_nickname_length"`
	DisableAutoReset  bool     `yaml:"disable_auto_reset"` // 最后一名玩家离开时不重置
}

// Policy 解析角色能力表
func (c *GameConfig) Policy() (role.Policy, error) {
	return role.ParsePolicy(c.TypistRoles, c.StarterRoles)
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	BlockedIPs     []string           `yaml:"blocked_ips"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 单连接消息速率限制，光标移动与游戏指令分开计量
type MessageLimitConfig struct {
	MaxPerSecond      int `yaml:"max_per_second"`      // cursor_move
	CommandsPerSecond int `yaml:"commands_per_second"` // 其余消息
}

// Load 加载配置文件，随后应用环境变量与默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault 路径为空或文件不存在时返回默认配置（仍然应用环境变量）
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyEnv 用 SHSWRITE_<SECTION>_<KEY> 覆盖文件中的值
func (c *Config) applyEnv() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setString(v, "server.host", &c.Server.Host)
	setInt(v, "server.port", &c.Server.Port)
	setInt(v, "server.max_connections", &c.Server.MaxConnections)
	setString(v, "server.public_url", &c.Server.PublicURL)

	setString(v, "log.level", &c.Log.Level)
	setString(v, "log.format", &c.Log.Format)

	setBool(v, "redis.enabled", &c.Redis.Enabled)
	setString(v, "redis.addr", &c.Redis.Addr)
	setString(v, "redis.password", &c.Redis.Password)
	setInt(v, "redis.db", &c.Redis.DB)

	setBool(v, "nats.enabled", &c.NATS.Enabled)
	setString(v, "nats.url", &c.NATS.URL)
	setString(v, "nats.subject_prefix", &c.NATS.SubjectPrefix)

	setStrings(v, "game.phrases", &c.Game.Phrases, "|")
	setStrings(v, "game.typist_roles", &c.Game.TypistRoles, ",")
	setStrings(v, "game.starter_roles", &c.Game.StarterRoles, ",")

	setStrings(v, "security.allowed_origins", &c.Security.AllowedOrigins, ",")
	setStrings(v, "security.blocked_ips", &c.Security.BlockedIPs, ",")
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setStrings(v *viper.Viper, key string, dst *[]string, sep string) {
	if !v.IsSet(key) {
		return
	}
	var out []string
	for _, s := range strings.Split(v.GetString(key), sep) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = defaultMaxConnections
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Server.StatsInterval == 0 {
		c.Server.StatsInterval = defaultStatsInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = defaultRedisKeyPrefix
	}

	if c.NATS.URL == "" {
		c.NATS.URL = defaultNATSURL
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultNATSSubjectPrefix
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = defaultNATSReconnectWait
	}

	if len(c.Game.TypistRoles) == 0 {
		c.Game.TypistRoles = roleNames(role.DefaultPolicy().Typists())
	}
	if len(c.Game.StarterRoles) == 0 {
		c.Game.StarterRoles = roleNames(role.DefaultPolicy().Starters())
	}
	if c.Game.MaxNicknameLength == 0 {
		c.Game.MaxNicknameLength = defaultMaxNicknameLength
	}

	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = defaultRateMaxPerSecond
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = defaultRateMaxPerMinute
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = defaultBanDuration
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		c.Security.MessageLimit.MaxPerSecond = defaultMessageMaxPerSecond
	}
	if c.Security.MessageLimit.CommandsPerSecond == 0 {
		c.Security.MessageLimit.CommandsPerSecond = defaultCommandsPerSecond
	}
}

func roleNames(roles []role.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return names
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections: %d", c.Server.MaxConnections)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q (console or json)", c.Log.Format)
	}
	if _, err := c.Game.Policy(); err != nil {
		return err
	}
	if c.Game.MaxNicknameLength < 0 {
		return fmt.Errorf("invalid max_nickname_length: %d", c.Game.MaxNicknameLength)
	}
	return nil
}
