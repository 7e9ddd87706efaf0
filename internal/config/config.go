package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	AdminJWT JWTConfig      `mapstructure:"admin_jwt"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Cache    CacheConfig    `mapstructure:"cache"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Referral ReferralConfig `mapstructure:"referral"`
	Reward   RewardConfig   `mapstructure:"reward"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Authz    AuthzConfig    `mapstructure:"authz"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver        string             `mapstructure:"driver"`          // 数据库驱动（sqlite/postgres）
	DSN           string             `mapstructure:"dsn"`             // 数据库连接串
	LockTimeoutMS int                `mapstructure:"lock_timeout_ms"` // 兑换事务行锁等待上限
	Pool          DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（令牌由身份服务签发，本服务只做校验）
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CacheConfig 兑换码查询缓存配置
type CacheConfig struct {
	CodeTTLSeconds int `mapstructure:"code_ttl_seconds"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RedeemRateLimit RateLimitConfig `mapstructure:"redeem_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// ReferralConfig 邀请码配置
type ReferralConfig struct {
	CodeLength      int                  `mapstructure:"code_length"`
	MaxMintAttempts int                  `mapstructure:"max_mint_attempts"`
	UniqueReferee   bool                 `mapstructure:"unique_referee"` // 每个用户全局只能被邀请一次
	Rewards         []ReferralRewardRule `mapstructure:"rewards"`
}

// ReferralRewardRule 邀请成功后发放的奖励规则
type ReferralRewardRule struct {
	Beneficiary string `mapstructure:"beneficiary"` // referrer / referee
	Kind        string `mapstructure:"kind"`
	Amount      string `mapstructure:"amount"`
	Currency    string `mapstructure:"currency"`
	ExpireDays  int    `mapstructure:"expire_days"`
}

// RewardConfig 奖励生命周期配置
type RewardConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize       int `mapstructure:"sweep_batch_size"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// ToTracingConfig 转换为 tracing 配置
func (c TracingConfig) ToTracingConfig(version string) tracing.Config {
	return tracing.Config{
		Enabled:     c.Enabled,
		Endpoint:    c.Endpoint,
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     version,
	}
}

// AuthzConfig 管理端授权配置
type AuthzConfig struct {
	SuperAdminIDs []uint              `mapstructure:"super_admin_ids"`
	AdminRoles    map[string][]string `mapstructure:"admin_roles"` // 管理员ID -> 角色列表
}

// LoadDotEnv 读取 .env 文件到环境变量，文件不存在时忽略
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			logger.Warnw("dotenv_load_failed", "file", path, "error", err)
			continue
		}
		logger.Infow("dotenv_loaded", "file", path)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "redemption.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/redemption.db")
	v.SetDefault("database.lock_timeout_ms", 3000)
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("admin_jwt.secret", "admin-change-me-in-production")
	v.SetDefault("admin_jwt.issuer", "")
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.issuer", "")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rdm")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cache.code_ttl_seconds", 30)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.redeem_rate_limit.window_seconds", 60)
	v.SetDefault("security.redeem_rate_limit.max_requests", 20)
	v.SetDefault("security.redeem_rate_limit.block_seconds", 300)
	v.SetDefault("referral.code_length", 8)
	v.SetDefault("referral.max_mint_attempts", 8)
	v.SetDefault("referral.unique_referee", true)
	v.SetDefault("reward.sweep_interval_seconds", 300)
	v.SetDefault("reward.sweep_batch_size", 200)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "redemption-engine")
	v.SetDefault("tracing.environment", "development")
}

// Load 从 config.yml 加载配置
func Load() *Config {
	cfg, err := LoadFrom(viper.GetViper(), ".", "./", "../", "./etc")
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFrom 使用指定 viper 实例与搜索路径加载配置
func LoadFrom(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	setDefaults(v)

	// 环境变量支持（server.port -> SERVER_PORT）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Referral.Rewards) == 0 {
		cfg.Referral.Rewards = DefaultReferralRewards()
	}
	return &cfg, nil
}

// DefaultReferralRewards 未配置时的默认奖励：邀请人获得余额，被邀请人获得折扣
func DefaultReferralRewards() []ReferralRewardRule {
	return []ReferralRewardRule{
		{Beneficiary: "referrer", Kind: "credit", Amount: "10.00", Currency: "CNY", ExpireDays: 90},
		{Beneficiary: "referee", Kind: "discount", Amount: "5.00", Currency: "CNY", ExpireDays: 30},
	}
}
