package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// YAML文件为基础，OMNI_前缀的环境变量覆盖（OMNI_DATABASE_PASSWORD → database.password）
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Log         LogConfig         `mapstructure:"log"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
	Integration IntegrationConfig `mapstructure:"integration"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN 生成MySQL连接字符串，loc需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EventTTL     time.Duration `mapstructure:"event_ttl"` // 渠道事件去重窗口
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig 运营端Token校验，Token由外部身份服务签发
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// SecretsConfig 渠道凭证加密密钥，为空时不加密（仅限开发环境）
type SecretsConfig struct {
	ChannelKey string `mapstructure:"channel_key"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type IntegrationConfig struct {
	Adapter        string        `mapstructure:"adapter"` // simulated | rabbitmq | kafka
	FailOperations []string      `mapstructure:"fail_operations"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type RabbitMQConfig struct {
	URL           string `mapstructure:"url"`
	Exchange      string `mapstructure:"exchange"`
	InboundQueue  string `mapstructure:"inbound_queue"`
	InboundPrefix string `mapstructure:"inbound_routing_key"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OutboxConfig struct {
	Inline       bool          `mapstructure:"inline"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
	Lease        time.Duration `mapstructure:"lease"` // 发送期间占用记录的时长
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Load 加载config/config.yaml
// OMNI_ENV=prod 时读取config.prod.yaml
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OMNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if env := v.GetString("env"); env != "" {
		v.SetConfigName("config." + env)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("redis.event_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("integration.adapter", "simulated")
	v.SetDefault("integration.breaker.max_requests", 1)
	v.SetDefault("integration.breaker.interval", time.Minute)
	v.SetDefault("integration.breaker.timeout", 30*time.Second)
	v.SetDefault("integration.breaker.failure_threshold", 5)
	v.SetDefault("rabbitmq.exchange", "channel.integration")
	v.SetDefault("rabbitmq.inbound_queue", "channel.events.inbound")
	v.SetDefault("rabbitmq.inbound_routing_key", "channel.*.event")
	v.SetDefault("kafka.topic", "channel-integration")
	v.SetDefault("outbox.inline", true)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.base_backoff", 10*time.Second)
	v.SetDefault("outbox.lease", 2*time.Minute)
	v.SetDefault("tracing.service_name", "omnichannel")
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.Server.Mode == "release" {
		if cfg.JWT.Secret == "" || cfg.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("生产环境必须修改JWT密钥")
		}
		if cfg.Secrets.ChannelKey == "" {
			return fmt.Errorf("生产环境必须配置渠道凭证加密密钥")
		}
	}

	switch cfg.Integration.Adapter {
	case "simulated":
	case "rabbitmq":
		if cfg.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq适配器需要配置rabbitmq.url")
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka适配器需要配置kafka.brokers")
		}
	default:
		return fmt.Errorf("未知的渠道适配器: %s", cfg.Integration.Adapter)
	}

	if cfg.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts必须大于0")
	}

	return nil
}
